// Package chromadb is an embeddable vector database speaking a subset of
// the Chroma REST API v2. A Client talks to either an in-process store or a
// remote server, and can expose its store as a servable fiber application.
package chromadb

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// APIImpl selects how a Client reaches its data.
type APIImpl string

const (
	// APIImplEmbedded runs the store in-process.
	APIImplEmbedded APIImpl = "embedded"

	// APIImplREST talks to a server over HTTP.
	APIImplREST APIImpl = "rest"
)

const (
	// DefaultPort is the port a vector database server listens on unless told otherwise.
	DefaultPort = 8000

	// DatabaseFile is the file name created inside Settings.PersistDirectory.
	DatabaseFile = "chroma.sqlite3"
)

// ParseAPIImpl parses a client mode name.
func ParseAPIImpl(s string) (APIImpl, error) {
	switch APIImpl(strings.ToLower(strings.TrimSpace(s))) {
	case APIImplEmbedded:
		return APIImplEmbedded, nil
	case APIImplREST:
		return APIImplREST, nil
	default:
		return "", fmt.Errorf("%w: unknown api impl %q (expected embedded or rest)", ErrInvalidArgument, s)
	}
}

// Settings configures a Client.
type Settings struct {
	// APIImpl is the client mode.
	APIImpl APIImpl

	// ServerHost is the host a REST client dials, and the bind host of a
	// served application.
	ServerHost string

	// ServerHTTPPort is the HTTP port, 1 to 65535.
	ServerHTTPPort int

	// PersistDirectory holds the database file for embedded clients and
	// served applications.
	PersistDirectory string
}

// Validate reports the first problem with s, if any.
func (s Settings) Validate() error {
	if _, err := ParseAPIImpl(string(s.APIImpl)); err != nil {
		return err
	}
	if s.ServerHTTPPort < 1 || s.ServerHTTPPort > 65535 {
		return fmt.Errorf("%w: server port %d out of range 1-65535", ErrInvalidArgument, s.ServerHTTPPort)
	}
	if s.APIImpl == APIImplREST && s.ServerHost == "" {
		return fmt.Errorf("%w: server host is required for the rest api", ErrInvalidArgument)
	}
	if s.APIImpl == APIImplEmbedded && s.PersistDirectory == "" {
		return fmt.Errorf("%w: persist directory is required for the embedded api", ErrInvalidArgument)
	}
	return nil
}

// Addr is the host:port listen address for a served application.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.ServerHost, strconv.Itoa(s.ServerHTTPPort))
}

// URL is the base URL a REST client dials. A wildcard bind host is dialed
// as localhost, and port 443 implies https.
func (s Settings) URL() string {
	host := s.ServerHost
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	scheme := "http"
	if s.ServerHTTPPort == 443 {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(s.ServerHTTPPort))
}
