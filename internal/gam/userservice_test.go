package gam

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gamaccess/gamaccess/internal/model"
)

func testNewUser(email, name string, roleID int64) model.User {
	return model.User{Email: email, DisplayName: name, RoleID: roleID, IsActive: true}
}

func userServiceForResponse(t *testing.T, inner string, capture *string) UserService {
	t.Helper()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			*capture = string(body)
		}
		io.WriteString(w, soapResponse(inner))
	})
	return client.WithNetwork("12345").Users()
}

func TestGetUserByEmail_Found(t *testing.T) {
	t.Parallel()

	var gotBody string
	svc := userServiceForResponse(t, `<getUsersByStatementResponse><rval>
		<totalResultSetSize>1</totalResultSetSize>
		<results>
			<id>4242</id>
			<name>Jane Doe</name>
			<email>jane@example.com</email>
			<roleId>1</roleId>
			<isActive>true</isActive>
		</results>
	</rval></getUsersByStatementResponse>`, &gotBody)

	user, err := svc.GetUserByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if user == nil {
		t.Fatal("user = nil, want match")
	}
	if user.ID != 4242 || user.Email != "jane@example.com" || user.RoleID != 1 {
		t.Errorf("user = %+v", user)
	}
	if !user.IsActive {
		t.Error("IsActive = false, want true")
	}

	// The email goes through a bound statement parameter, not string
	// concatenation into the query.
	if !strings.Contains(gotBody, "WHERE email = :email") {
		t.Errorf("request missing parameterized query: %s", gotBody)
	}
	if !strings.Contains(gotBody, "<ns1:value>jane@example.com</ns1:value>") {
		t.Errorf("request missing bound email value: %s", gotBody)
	}
}

func TestGetUserByEmail_NoMatch(t *testing.T) {
	t.Parallel()

	svc := userServiceForResponse(t, `<getUsersByStatementResponse><rval>
		<totalResultSetSize>0</totalResultSetSize>
	</rval></getUsersByStatementResponse>`, nil)

	user, err := svc.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for no match", user)
	}
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	var gotBody string
	svc := userServiceForResponse(t, `<createUsersResponse><rval>
		<id>5005</id>
		<name>jane</name>
		<email>jane@example.com</email>
		<roleId>2</roleId>
		<isActive>true</isActive>
	</rval></createUsersResponse>`, &gotBody)

	created, err := svc.CreateUser(context.Background(), testNewUser("jane@example.com", "jane", 2))
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if created.ID != 5005 {
		t.Errorf("ID = %d, want 5005", created.ID)
	}
	if !strings.Contains(gotBody, "<ns1:roleId>2</ns1:roleId>") {
		t.Errorf("request missing role id: %s", gotBody)
	}
	if !strings.Contains(gotBody, "<ns1:isActive>true</ns1:isActive>") {
		t.Errorf("request missing active flag: %s", gotBody)
	}
	// New users never carry an id.
	if strings.Contains(gotBody, "<ns1:id>") {
		t.Errorf("create request carries an id: %s", gotBody)
	}
}

func TestCreateUser_EmptyResultIsFault(t *testing.T) {
	t.Parallel()

	svc := userServiceForResponse(t, `<createUsersResponse></createUsersResponse>`, nil)

	_, err := svc.CreateUser(context.Background(), testNewUser("jane@example.com", "jane", 2))
	if err == nil {
		t.Fatal("expected error for empty createUsers result")
	}
}

func TestUpdateUserRole(t *testing.T) {
	t.Parallel()

	var gotBody string
	svc := userServiceForResponse(t, `<updateUsersResponse><rval>
		<id>4242</id>
		<name>Jane Doe</name>
		<email>jane@example.com</email>
		<roleId>2</roleId>
		<isActive>true</isActive>
	</rval></updateUsersResponse>`, &gotBody)

	updated, err := svc.UpdateUserRole(context.Background(), 4242, 2)
	if err != nil {
		t.Fatalf("UpdateUserRole() error = %v", err)
	}
	if updated.RoleID != 2 {
		t.Errorf("RoleID = %d, want 2", updated.RoleID)
	}
	if !strings.Contains(gotBody, "<ns1:id>4242</ns1:id>") {
		t.Errorf("request missing user id: %s", gotBody)
	}
}

func TestDisplayNameForEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "jane.doe"},
		{"a@b.c", "a"},
		{"no-at-sign", "no-at-sign"},
		{"@leading", "@leading"},
	}

	for _, tt := range tests {
		if got := DisplayNameForEmail(tt.email); got != tt.want {
			t.Errorf("DisplayNameForEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
