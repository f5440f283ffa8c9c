package control

import (
	"encoding/json"
	"net"
	"time"

	"github.com/turtacn/Vigil/pkg/errors"
)

// Send delivers req to the daemon listening on socketPath and returns its
// response. A response with OK=false is returned together with an
// ErrCodeControlRejected error.
func Send(socketPath string, req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, errors.New(errors.ErrCodeControlUnavailable, "Send", "daemon not reachable at "+socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, errors.New(errors.ErrCodeControlUnavailable, "Send", "cannot write request", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, errors.New(errors.ErrCodeControlUnavailable, "Send", "cannot read response", err)
	}
	if !resp.OK {
		return &resp, errors.New(errors.ErrCodeControlRejected, "Send", resp.Error, nil)
	}
	return &resp, nil
}

// Personal.AI order the ending
