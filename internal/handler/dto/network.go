package dto

import (
	"github.com/gamaccess/gamaccess/internal/model"
)

// NetworkResponse is one network entry in the list response.
type NetworkResponse struct {
	NetworkCode string  `json:"networkCode"`
	DisplayName *string `json:"displayName"`
}

// NetworkListResponse is the body for GET /api/v1/networks.
type NetworkListResponse struct {
	Networks []NetworkResponse `json:"networks"`
}

// ToNetworkListResponse converts the cached network list to the wire
// shape. An empty list serializes as [] rather than null.
func ToNetworkListResponse(networks []model.Network) NetworkListResponse {
	out := make([]NetworkResponse, len(networks))
	for i, n := range networks {
		out[i] = NetworkResponse{
			NetworkCode: n.NetworkCode,
			DisplayName: n.DisplayName,
		}
	}
	return NetworkListResponse{Networks: out}
}
