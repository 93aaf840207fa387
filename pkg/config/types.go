package config

// Config is the optional configuration file of coprcheck. Every section may be omitted.
type Config struct {
	Copr   *Copr   `json:"copr,omitempty"`
	Fetch  *Fetch  `json:"fetch,omitempty"`
	DB     *DB     `json:"db,omitempty"`
	Report *Report `json:"report,omitempty"`
}

type Copr struct {
	URL         string `json:"url,omitempty"`
	Timeout     int    `json:"timeout,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}

type Fetch struct {
	Accept []string `json:"accept,omitempty"`
}

type DB struct {
	Type string `json:"type,omitempty"`
	Path string `json:"path,omitempty"`
}

type Report struct {
	// yaml or json. Empty picks the format from the report file extension.
	Format string `json:"format,omitempty"`
}
