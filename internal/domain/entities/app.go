package entities

// AppDescription is the merged view of an application.
// The same shape is used for partial inputs (explicit config, repository, store);
// empty strings and nil counts mean "not provided".
type AppDescription struct {
	Identifier     string
	Name           string
	Description    string
	Homepage       string
	Repository     string
	License        string
	Icon           string   // local path before addressing, URL after
	Images         []string // local paths or URLs
	Topics         []string
	StarCount      *int
	ForkCount      *int
	OwnerPublicKey string // hex
}

// ReleaseDescription describes exactly one release of one app
type ReleaseDescription struct {
	TagName   string
	Body      string
	CreatedAt string // RFC 3339
	HTMLURL   string
}

// RepoRef identifies a repository on a source-code host
type RepoRef struct {
	Host  string
	Owner string
	Name  string
}

// Slug returns "owner/name"
func (r RepoRef) Slug() string {
	return r.Owner + "/" + r.Name
}

// URL returns the canonical web URL of the repository
func (r RepoRef) URL() string {
	return "https://" + r.Host + "/" + r.Slug()
}

// RepoFacts are the facts a repository host reports about a project
type RepoFacts struct {
	Name        string
	Description string
	Homepage    string
	License     string
	Topics      []string
	StarCount   *int
	ForkCount   *int
}

// RepoRelease is a release as reported by a repository host, with its assets
type RepoRelease struct {
	TagName   string
	Body      string
	CreatedAt string
	HTMLURL   string
	Assets    []CandidateAsset
}

// StoreFacts are the facts scraped from an app-store listing
type StoreFacts struct {
	Name        string
	Description string
	IconURL     string
	ImageURLs   []string
}
