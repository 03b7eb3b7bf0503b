package gam

import (
	"context"
	"encoding/xml"

	"github.com/gamaccess/gamaccess/internal/model"
)

const networkServiceName = "NetworkService"

// NetworkService enumerates the networks reachable by the service
// credentials. Valid on unscoped clients.
type NetworkService interface {
	GetAllNetworks(ctx context.Context) ([]model.Network, error)
}

type networkService struct {
	client *Client
}

type getAllNetworksRequest struct {
	XMLName xml.Name `xml:"ns1:getAllNetworks"`
}

type getAllNetworksResponse struct {
	XMLName  xml.Name     `xml:"getAllNetworksResponse"`
	Networks []networkXML `xml:"rval"`
}

type networkXML struct {
	NetworkCode string  `xml:"networkCode"`
	DisplayName *string `xml:"displayName"`
}

// GetAllNetworks lists all accessible networks, normalized to model
// form. Entries without a network code are dropped.
func (s *networkService) GetAllNetworks(ctx context.Context) ([]model.Network, error) {
	var resp getAllNetworksResponse
	if err := s.client.call(ctx, networkServiceName, "getAllNetworks", getAllNetworksRequest{}, &resp); err != nil {
		return nil, err
	}

	networks := make([]model.Network, 0, len(resp.Networks))
	for _, n := range resp.Networks {
		if n.NetworkCode == "" {
			continue
		}
		networks = append(networks, model.Network{
			NetworkCode: n.NetworkCode,
			DisplayName: n.DisplayName,
		})
	}
	return networks, nil
}
