package entities

// PlatformAndroid is the only platform the publisher processes
const PlatformAndroid = "android"

// AppConfig is one alias/platform entry of the app file
type AppConfig struct {
	Alias       string
	Platform    string
	Identifier  string
	Name        string
	Description string
	Homepage    string
	License     string
	Icon        string
	Images      []string
	Repository  string
	APKRegex    string
	Npub        string
	Topics      []string
}

// Explicit converts the configured values into a partial app description.
// OwnerPublicKey is resolved by the caller since it needs bech32 decoding.
func (c *AppConfig) Explicit() *AppDescription {
	return &AppDescription{
		Identifier:  c.Identifier,
		Name:        c.Name,
		Description: c.Description,
		Homepage:    c.Homepage,
		Repository:  c.Repository,
		License:     c.License,
		Icon:        c.Icon,
		Images:      append([]string(nil), c.Images...),
		Topics:      append([]string(nil), c.Topics...),
	}
}
