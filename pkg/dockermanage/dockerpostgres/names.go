package dockerpostgres

import (
	"strings"

	"github.com/google/uuid"
)

// credentials are the generated identifiers of one fixture. Each field uses its own token, so
// two fixtures never share a database, user or password.
type credentials struct {
	database string
	user     string
	password string
}

func newCredentials() credentials {
	return credentials{
		database: "test_postgres_" + token(),
		user:     "postgres_user_" + token(),
		password: "postgres_password_" + token(),
	}
}

// token returns 32 lower-case hex characters.
func token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
