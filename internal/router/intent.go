package router

import "strings"

// Intent names for each service's operations.
const (
	IntentWebSearch = "web_search"

	IntentUploadFile   = "upload_file"
	IntentListFiles    = "list_files"
	IntentDownloadFile = "download_file"
	IntentDeleteFile   = "delete_file"

	IntentCreateDocument  = "create_document"
	IntentSearchDocuments = "search_documents"
	IntentListDocuments   = "list_documents"
	IntentUpdateDocument  = "update_document"
	IntentDeleteDocument  = "delete_document"

	IntentUploadPDF    = "upload_pdf"
	IntentSummarizePDF = "summarize_pdf"
	IntentListPDFs     = "list_pdfs"
	IntentAskQuestion  = "ask_question"
	IntentSearchPDFs   = "search_pdfs"

	IntentGeneralConversation = "general_conversation"
	IntentListAllDocuments    = "list_all_documents"
)

func containsAny(query string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(query, w) {
			return true
		}
	}
	return false
}

// ExtractIntent derives the service-specific operation from a normalized
// query. Each service has a sensible default when no verb matches.
func ExtractIntent(query string, svc Service) string {
	switch svc {
	case ServiceSearch:
		return IntentWebSearch

	case ServiceDrive:
		switch {
		case containsAny(query, "upload", "save", "store"):
			return IntentUploadFile
		case containsAny(query, "list", "show", "files"):
			return IntentListFiles
		case containsAny(query, "download", "get"):
			return IntentDownloadFile
		case containsAny(query, "delete", "remove"):
			return IntentDeleteFile
		default:
			return IntentListFiles
		}

	case ServiceDatabase:
		switch {
		case containsAny(query, "create", "add", "store", "save", "remember"):
			return IntentCreateDocument
		case containsAny(query, "search", "find", "look for"):
			return IntentSearchDocuments
		case containsAny(query, "list", "show", "all"):
			return IntentListDocuments
		case containsAny(query, "update", "edit", "modify"):
			return IntentUpdateDocument
		case containsAny(query, "delete", "remove"):
			return IntentDeleteDocument
		default:
			return IntentSearchDocuments
		}

	case ServiceRAGPDF:
		switch {
		case containsAny(query, "upload", "add", "process"):
			return IntentUploadPDF
		case containsAny(query, "summarize", "summary"):
			return IntentSummarizePDF
		case containsAny(query, "list", "show all", "all pdfs", "all documents"):
			return IntentListPDFs
		case containsAny(query, "question", "ask", "what", "how", "why", "explain", "findings"):
			return IntentAskQuestion
		case containsAny(query, "search", "find"):
			return IntentSearchPDFs
		default:
			return IntentAskQuestion
		}

	default:
		return IntentGeneralConversation
	}
}

// ExtractParameters derives call parameters for the destination service.
// Trigger words are stripped from search-style queries so the backend sees
// only the subject.
func ExtractParameters(query string, svc Service, intent string) map[string]any {
	params := make(map[string]any)
	lower := strings.ToLower(query)

	switch svc {
	case ServiceSearch:
		clean := lower
		for _, trigger := range []string{"search for", "search", "google", "find online", "look up"} {
			clean = strings.Replace(clean, trigger, "", 1)
		}
		params["query"] = strings.TrimSpace(clean)
		params["num_results"] = 5

	case ServiceDatabase:
		switch intent {
		case IntentSearchDocuments:
			clean := lower
			for _, trigger := range []string{"search", "find", "look for", "in my notes", "from my notes"} {
				clean = strings.Replace(clean, trigger, "", 1)
			}
			params["query"] = strings.TrimSpace(clean)
			params["limit"] = 10
		case IntentCreateDocument:
			params["category"] = "general"
		}

	case ServiceRAGPDF:
		switch intent {
		case IntentAskQuestion:
			params["question"] = query
			params["max_context_chunks"] = 7
		case IntentListPDFs, IntentListAllDocuments:
			params["limit"] = 100
			params["include_notes"] = strings.Contains(lower, "note")
		}
	}

	if len(params) == 0 {
		return nil
	}
	return params
}
