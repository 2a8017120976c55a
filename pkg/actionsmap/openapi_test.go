package actionsmap

import (
	"context"
	"testing"
)

const openAPIDoc = `
openapi: 3.0.3
info:
  title: Admin API
  version: "1.0"
paths:
  /users:
    get:
      tags: [user]
      operationId: userList
      summary: List users
      responses:
        "200":
          description: ok
    post:
      tags: [user]
      operationId: userCreate
      summary: Create a user
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [username, password]
              properties:
                username:
                  type: string
                password:
                  type: string
                  format: password
                quota:
                  type: integer
                  default: 0
      responses:
        "200":
          description: ok
  /domains/{domain}:
    delete:
      tags: [domain]
      operationId: domainRemove
      summary: Remove a domain
      x-cli-stream: true
      parameters:
        - name: domain
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
`

func TestFromOpenAPI(t *testing.T) {
	tree, err := FromOpenAPI(context.Background(), []byte(openAPIDoc))
	if err != nil {
		t.Fatalf("FromOpenAPI() error = %v", err)
	}

	if got := tree.ActionCount(); got != 3 {
		t.Fatalf("ActionCount() = %d, want 3", got)
	}

	list := tree.Lookup("user.list")
	if list == nil {
		t.Fatal("Lookup(user.list) = nil; operation IDs should strip the tag prefix")
	}
	if list.Method != "GET" || list.Endpoint != "/users" {
		t.Errorf("user.list = %s %s, want GET /users", list.Method, list.Endpoint)
	}

	create := tree.Lookup("user.create")
	if create == nil {
		t.Fatal("Lookup(user.create) = nil")
	}
	pw := create.Argument("password")
	if pw == nil || pw.Kind != KindPassword || !pw.Redact {
		t.Errorf("password format should map to a redacted password argument, got %+v", pw)
	}
	quota := create.Argument("quota")
	if quota == nil || quota.Kind != KindInteger || !quota.HasDefault {
		t.Errorf("quota should be an integer with a default, got %+v", quota)
	}
	if user := create.Argument("username"); user == nil || !user.Required {
		t.Errorf("username should be required, got %+v", user)
	}

	remove := tree.Lookup("domain.remove")
	if remove == nil {
		t.Fatal("Lookup(domain.remove) = nil")
	}
	if !remove.Streams {
		t.Error("x-cli-stream should mark domain.remove as streaming")
	}
	domain := remove.Argument("domain")
	if domain == nil || !domain.Positional || domain.Place != PlacePath {
		t.Errorf("path parameter should be a positional path argument, got %+v", domain)
	}
}

func TestFromOpenAPIRejectsRedactedPathParameter(t *testing.T) {
	doc := `
openapi: 3.0.3
info:
  title: Admin API
  version: "1.0"
paths:
  /reset/{token}:
    post:
      tags: [auth]
      operationId: authReset
      parameters:
        - name: token
          in: path
          required: true
          schema:
            type: string
            format: password
      responses:
        "200":
          description: ok
`
	_, err := FromOpenAPI(context.Background(), []byte(doc))
	schemaErr, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("FromOpenAPI() error = %v, want *SchemaError", err)
	}
	if schemaErr.Path != "auth.reset" {
		t.Errorf("SchemaError.Path = %q, want auth.reset", schemaErr.Path)
	}
}

func TestFromOpenAPIRejectsGarbage(t *testing.T) {
	if _, err := FromOpenAPI(context.Background(), []byte("not: openapi")); err == nil {
		t.Fatal("FromOpenAPI() succeeded on a non-OpenAPI document")
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"userList", "user-list"},
		{"user_list", "user-list"},
		{"User List", "user-list"},
		{"domain", "domain"},
		{"backupCreateArchive", "backup-create-archive"},
	}
	for _, tt := range tests {
		if got := commandName(tt.in); got != tt.want {
			t.Errorf("commandName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
