package gam

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/gamaccess/gamaccess/internal/model"
)

const userServiceName = "UserService"

// UserService is the slice of GAM's UserService the access granter
// needs. Implementations are scoped to a single network.
type UserService interface {
	// GetAllRoles lists every role defined in the network.
	GetAllRoles(ctx context.Context) ([]model.Role, error)
	// GetUserByEmail finds a user by exact email match.
	// Returns nil, nil when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// CreateUser creates a user and returns it with its assigned id.
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	// UpdateUserRole changes a user's role and returns the updated user.
	// No other fields are touched.
	UpdateUserRole(ctx context.Context, userID, roleID int64) (*model.User, error)
}

type userService struct {
	client *Client
}

// --- wire types ---

type roleXML struct {
	ID   int64  `xml:"id"`
	Name string `xml:"name"`
}

type userXML struct {
	ID       int64  `xml:"id"`
	Name     string `xml:"name"`
	Email    string `xml:"email"`
	RoleID   int64  `xml:"roleId"`
	IsActive bool   `xml:"isActive"`
}

func (u userXML) toModel() *model.User {
	return &model.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.Name,
		RoleID:      u.RoleID,
		IsActive:    u.IsActive,
	}
}

// statementXML is a PQL filter statement with bound text values.
type statementXML struct {
	Query  string           `xml:"ns1:query"`
	Values []stringParamXML `xml:"ns1:values"`
}

type stringParamXML struct {
	Key   string       `xml:"ns1:key"`
	Value textValueXML `xml:"ns1:value"`
}

type textValueXML struct {
	Type  string `xml:"xsi:type,attr"` // always "ns1:TextValue"
	Value string `xml:"ns1:value"`
}

func textParam(key, value string) stringParamXML {
	return stringParamXML{
		Key:   key,
		Value: textValueXML{Type: "ns1:TextValue", Value: value},
	}
}

// --- operations ---

type getAllRolesRequest struct {
	XMLName xml.Name `xml:"ns1:getAllRoles"`
}

type getAllRolesResponse struct {
	XMLName xml.Name  `xml:"getAllRolesResponse"`
	Roles   []roleXML `xml:"rval"`
}

func (s *userService) GetAllRoles(ctx context.Context) ([]model.Role, error) {
	var resp getAllRolesResponse
	if err := s.client.call(ctx, userServiceName, "getAllRoles", getAllRolesRequest{}, &resp); err != nil {
		return nil, err
	}

	roles := make([]model.Role, 0, len(resp.Roles))
	for _, r := range resp.Roles {
		roles = append(roles, model.Role{ID: r.ID, Name: r.Name})
	}
	return roles, nil
}

type getUsersByStatementRequest struct {
	XMLName   xml.Name     `xml:"ns1:getUsersByStatement"`
	Statement statementXML `xml:"ns1:filterStatement"`
}

type getUsersByStatementResponse struct {
	XMLName xml.Name `xml:"getUsersByStatementResponse"`
	Page    struct {
		TotalResultSetSize int       `xml:"totalResultSetSize"`
		Results            []userXML `xml:"results"`
	} `xml:"rval"`
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	req := getUsersByStatementRequest{
		Statement: statementXML{
			Query:  "WHERE email = :email LIMIT 1",
			Values: []stringParamXML{textParam("email", email)},
		},
	}

	var resp getUsersByStatementResponse
	if err := s.client.call(ctx, userServiceName, "getUsersByStatement", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Page.Results) == 0 {
		return nil, nil
	}
	return resp.Page.Results[0].toModel(), nil
}

type createUsersRequest struct {
	XMLName xml.Name  `xml:"ns1:createUsers"`
	Users   []userArg `xml:"ns1:users"`
}

type userArg struct {
	ID       *int64 `xml:"ns1:id,omitempty"`
	Name     string `xml:"ns1:name,omitempty"`
	Email    string `xml:"ns1:email,omitempty"`
	RoleID   int64  `xml:"ns1:roleId"`
	IsActive *bool  `xml:"ns1:isActive,omitempty"`
}

type createUsersResponse struct {
	XMLName xml.Name  `xml:"createUsersResponse"`
	Users   []userXML `xml:"rval"`
}

func (s *userService) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	active := u.IsActive
	req := createUsersRequest{
		Users: []userArg{{
			Name:     u.DisplayName,
			Email:    u.Email,
			RoleID:   u.RoleID,
			IsActive: &active,
		}},
	}

	var resp createUsersResponse
	if err := s.client.call(ctx, userServiceName, "createUsers", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &Fault{Code: "EmptyResult", Message: "createUsers returned no users"}
	}
	return resp.Users[0].toModel(), nil
}

type updateUsersRequest struct {
	XMLName xml.Name  `xml:"ns1:updateUsers"`
	Users   []userArg `xml:"ns1:users"`
}

type updateUsersResponse struct {
	XMLName xml.Name  `xml:"updateUsersResponse"`
	Users   []userXML `xml:"rval"`
}

func (s *userService) UpdateUserRole(ctx context.Context, userID, roleID int64) (*model.User, error) {
	req := updateUsersRequest{
		Users: []userArg{{ID: &userID, RoleID: roleID}},
	}

	var resp updateUsersResponse
	if err := s.client.call(ctx, userServiceName, "updateUsers", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &Fault{Code: "EmptyResult", Message: "updateUsers returned no users"}
	}
	return resp.Users[0].toModel(), nil
}

// DisplayNameForEmail derives the default display name for a new user:
// the email's local part.
func DisplayNameForEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
