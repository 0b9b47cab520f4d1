package domain

// Domain contains the records passed between pipeline stages.

// ExtractedArticle is the output of the readable-content extractor.
// Metadata fields are empty when no source on the page provided them.
type ExtractedArticle struct {
	Title       string
	BodyMarkup  string
	Author      string
	PublishDate string
	Description string
}

// ArticleDocument is the extraction core's final output, consumed by
// translation and image handling.
type ArticleDocument struct {
	Title        string
	BodyMarkdown string
	ImageURLs    []string
	Author       string
	PublishDate  string
	Description  string
}

// ImageResult records the outcome of one image download. URL is the literal
// string appearing in the Markdown; RealURL is what was actually fetched
// after unwrapping optimizer redirectors.
type ImageResult struct {
	URL      string
	RealURL  string
	Filename string
	Filepath string
	Success  bool
	Err      string
}

// NoteRecord is the final document handed to the vault writer.
type NoteRecord struct {
	Title          string   `json:"title"`
	OriginalTitle  string   `json:"original_title"`
	Content        string   `json:"content"`
	SourceURL      string   `json:"source_url"`
	Author         string   `json:"author"`
	PublishDate    string   `json:"publish_date,omitempty"`
	TranslatedDate string   `json:"translated_date"`
	Images         []string `json:"images"`
	Tags           []string `json:"tags"`
	Description    string   `json:"description,omitempty"`
}
