package api

// Card describes the service or user behind a syndication target.
type Card struct {
	Name  string `json:"name" toml:"name"`
	URL   string `json:"url,omitempty" toml:"url"`
	Photo string `json:"photo,omitempty" toml:"photo"`
}

// SyndicationTarget is a destination a client may ask a post to be syndicated to.
type SyndicationTarget struct {
	UID     string `json:"uid" toml:"uid"`
	Name    string `json:"name" toml:"name"`
	Service *Card  `json:"service,omitempty" toml:"service"`
	User    *Card  `json:"user,omitempty" toml:"user"`
}

// ConfigResponse answers q=config.
type ConfigResponse struct {
	Me            string              `json:"me"`
	TokenEndpoint string              `json:"token-endpoint"`
	MediaEndpoint string              `json:"media-endpoint,omitempty"`
	SyndicateTo   []SyndicationTarget `json:"syndicate-to"`
}

// SyndicateToResponse answers q=syndicate-to.
type SyndicateToResponse struct {
	SyndicateTo []SyndicationTarget `json:"syndicate-to"`
}

// MediaEndpointResponse answers q=media-endpoint.
type MediaEndpointResponse struct {
	MediaEndpoint string `json:"media-endpoint"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
