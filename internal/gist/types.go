package gist

// createRequest is the payload for creating a gist
type createRequest struct {
	Description string              `json:"description"`
	Public      bool                `json:"public"`
	Files       map[string]filePart `json:"files"`
}

// updateRequest is the payload for editing a gist.
// A nil file entry serializes as null, which removes that file remotely.
type updateRequest struct {
	Files map[string]*filePart `json:"files"`
}

type filePart struct {
	Content string `json:"content"`
}

// gistResponse is the subset of the gist resource this client reads
type gistResponse struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Files       map[string]gistFile `json:"files"`
}

type gistFile struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

// apiErrorBody is the error shape the API returns
type apiErrorBody struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
