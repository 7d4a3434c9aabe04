package application

import (
	"github.com/dfryer1193/micropub/api"
	"github.com/dfryer1193/micropub/blog/domain"
)

// ServerInfo is what the configuration queries report about this endpoint.
type ServerInfo struct {
	Me            string
	TokenEndpoint string
	MediaEndpoint string
	SyndicateTo   []api.SyndicationTarget
}

// Query answers a Micropub GET query with the JSON body to send back. The
// source query is not supported.
func (i ServerInfo) Query(q string) (any, error) {
	switch q {
	case "config":
		return &api.ConfigResponse{
			Me:            i.Me,
			TokenEndpoint: i.TokenEndpoint,
			MediaEndpoint: i.MediaEndpoint,
			SyndicateTo:   i.targets(),
		}, nil
	case "syndicate-to":
		return &api.SyndicateToResponse{SyndicateTo: i.targets()}, nil
	case "media-endpoint":
		return &api.MediaEndpointResponse{MediaEndpoint: i.MediaEndpoint}, nil
	case "":
		return nil, domain.NewError(domain.KindInvalidRequest, "the q parameter is required")
	default:
		return nil, domain.NewError(domain.KindUnsupportedQuery, "Query '%s' is not supported", q)
	}
}

func (i ServerInfo) targets() []api.SyndicationTarget {
	if i.SyndicateTo == nil {
		return []api.SyndicationTarget{}
	}
	return i.SyndicateTo
}
