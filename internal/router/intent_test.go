package router

import "testing"

func TestExtractIntent(t *testing.T) {
	tests := []struct {
		name  string
		query string
		svc   Service
		want  string
	}{
		{"search is always web search", "search for news", ServiceSearch, IntentWebSearch},

		{"drive upload", "upload report.txt to drive", ServiceDrive, IntentUploadFile},
		{"drive list", "show my files", ServiceDrive, IntentListFiles},
		{"drive download", "download the budget file", ServiceDrive, IntentDownloadFile},
		{"drive default", "drive", ServiceDrive, IntentListFiles},

		{"database create", "remember this for later", ServiceDatabase, IntentCreateDocument},
		{"database search", "find my meeting notes", ServiceDatabase, IntentSearchDocuments},
		{"database delete", "delete the old note", ServiceDatabase, IntentDeleteDocument},
		{"database default", "budget", ServiceDatabase, IntentSearchDocuments},

		{"pdf upload", "process this pdf", ServiceRAGPDF, IntentUploadPDF},
		{"pdf summary", "summarize the paper", ServiceRAGPDF, IntentSummarizePDF},
		{"pdf question", "what are the findings", ServiceRAGPDF, IntentAskQuestion},
		{"pdf default", "the pdf", ServiceRAGPDF, IntentAskQuestion},

		{"general", "hello there", ServiceGeneral, IntentGeneralConversation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIntent(tt.query, tt.svc); got != tt.want {
				t.Errorf("ExtractIntent(%q, %s) = %s, want %s", tt.query, tt.svc, got, tt.want)
			}
		})
	}
}

func TestExtractParametersSearch(t *testing.T) {
	params := ExtractParameters("search for golang generics", ServiceSearch, IntentWebSearch)

	if got := params["query"]; got != "golang generics" {
		t.Errorf("query = %q, want trigger words stripped", got)
	}

	if got := params["num_results"]; got != 5 {
		t.Errorf("num_results = %v, want 5", got)
	}
}

func TestExtractParametersDatabase(t *testing.T) {
	params := ExtractParameters("find budget in my notes", ServiceDatabase, IntentSearchDocuments)

	if got := params["query"]; got != "budget" {
		t.Errorf("query = %q, want %q", got, "budget")
	}

	if got := params["limit"]; got != 10 {
		t.Errorf("limit = %v, want 10", got)
	}

	create := ExtractParameters("remember this", ServiceDatabase, IntentCreateDocument)
	if got := create["category"]; got != "general" {
		t.Errorf("category = %v, want general", got)
	}
}

func TestExtractParametersRAGPDF(t *testing.T) {
	q := "What are the findings of the uploaded paper?"
	params := ExtractParameters(q, ServiceRAGPDF, IntentAskQuestion)

	if got := params["question"]; got != q {
		t.Errorf("question = %q, want original query text", got)
	}

	if got := params["max_context_chunks"]; got != 7 {
		t.Errorf("max_context_chunks = %v, want 7", got)
	}

	list := ExtractParameters("list all my documents and notes", ServiceRAGPDF, IntentListAllDocuments)
	if got := list["limit"]; got != 100 {
		t.Errorf("limit = %v, want 100", got)
	}
	if got := list["include_notes"]; got != true {
		t.Errorf("include_notes = %v, want true", got)
	}
}

func TestExtractParametersEmpty(t *testing.T) {
	if params := ExtractParameters("hello", ServiceGeneral, IntentGeneralConversation); params != nil {
		t.Errorf("params = %v, want nil for general conversation", params)
	}
}
