/*
Package gateway manages sessions against a remote image server and exposes
the structural query surface: connection setup with layered parameter
resolution, membership-checked group switching, scoped cross-group
execution, and the id-listing wrappers used to walk the server's container
hierarchy.
*/
package gateway

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/twinj/uuid"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// MinServerVersion is the oldest server release this client can talk to.
var MinServerVersion = semver.MustParse("5.6.0")

// Conn is an authenticated session with a remote image server.  It embeds
// the full client surface, so pixel and annotation accessors take a *Conn
// directly.
type Conn struct {
	store.Client

	session  *store.SessionInfo
	clientID string
}

// Connect establishes a session using params, filling unset fields from
// EZIMAGE_* environment variables and then from the config file in
// configDir (the home directory when empty).  Callers own the returned
// connection and must Close it.
func Connect(params ConnectionParams, configDir string) (*Conn, error) {
	params, err := params.resolve(configDir)
	if err != nil {
		return nil, err
	}
	if params.Host == "" || params.Port == 0 {
		return nil, fmt.Errorf("no server host/port given via parameters, environment, or config file: %w",
			ezimage.ErrInvalidArgument)
	}
	scheme := "http"
	if params.Secure {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s:%d", scheme, params.Host, params.Port)
	clientID := fmt.Sprintf("ezimage-%x", uuid.NewV4().Bytes())
	return Login(store.NewHTTPClient(base, clientID), params, clientID)
}

// Login authenticates an already-constructed client.  It is split from
// Connect so alternative transports and tests can inject their own client.
func Login(client store.Client, params ConnectionParams, clientID string) (*Conn, error) {
	session, err := client.Login(params.User, params.Password, params.Group)
	if err != nil {
		return nil, fmt.Errorf("could not connect, check your settings: %v", err)
	}
	ver, err := semver.Make(session.ServerVersion)
	if err != nil {
		client.Logout()
		return nil, fmt.Errorf("server reported unparseable version %q: %v", session.ServerVersion, err)
	}
	if ver.LT(MinServerVersion) {
		client.Logout()
		return nil, fmt.Errorf("server version %s is below minimum supported %s",
			ver, MinServerVersion)
	}
	ezimage.Infof("Connected to %s server version %s as user %d\n",
		params.Host, session.ServerVersion, session.UserID)
	return &Conn{Client: client, session: session, clientID: clientID}, nil
}

// Session returns the session descriptor established at login.
func (c *Conn) Session() store.SessionInfo {
	return *c.session
}

// Close logs out and releases the underlying client.
func (c *Conn) Close() error {
	if err := c.Client.Logout(); err != nil {
		ezimage.Errorf("Error logging out session %s: %v\n", c.session.Key, err)
	}
	return c.Client.Close()
}
