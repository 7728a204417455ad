package cu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
)

// Operation is a handle to a long-running service operation. The service
// returns it as the Operation-Location response header on PUT/POST.
type Operation struct {
	Location string
}

// ErrMissingOperationLocation indicates the service accepted a request but
// returned no operation handle to poll.
var ErrMissingOperationLocation = errors.New("Operation-Location header missing from response")

var errOperationRunning = errors.New("operation still running")

func operationFromResponse(resp *http.Response) (*Operation, error) {
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return nil, ErrMissingOperationLocation
	}
	return &Operation{Location: loc}, nil
}

// name returns a short identifier for logging: the last path segment of the
// operation URL without the query string.
func (op *Operation) name() string {
	loc := op.Location
	if i := strings.IndexByte(loc, '?'); i >= 0 {
		loc = loc[:i]
	}
	if i := strings.LastIndexByte(loc, '/'); i >= 0 {
		loc = loc[i+1:]
	}
	return loc
}

// Poll drives the Submitted → Running → {Succeeded, Failed} state machine
// for op, checking status at a fixed interval for a bounded number of
// attempts. On success it returns the final status document verbatim.
// Exhausting the attempt budget returns a *TimeoutError; a Failed terminal
// state returns a *OperationFailedError.
func (c *Client) Poll(ctx context.Context, op *Operation) (json.RawMessage, error) {
	var final json.RawMessage

	err := retry.Do(
		func() error {
			body, err := c.getJSON(ctx, op.Location)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			var status struct {
				Status string `json:"status"`
				Error  struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return retry.Unrecoverable(err)
			}

			switch strings.ToLower(status.Status) {
			case "succeeded":
				final = body
				return nil
			case "failed":
				return retry.Unrecoverable(&OperationFailedError{
					Operation: op.name(),
					Message:   status.Error.Message,
					Raw:       body,
				})
			default:
				c.logger.Debug("operation in progress", "operation", op.name(), "status", status.Status)
				return errOperationRunning
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.pollMaxAttempts)),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errOperationRunning)
		}),
	)
	if err != nil {
		if errors.Is(err, errOperationRunning) {
			return nil, &TimeoutError{
				Operation: op.name(),
				Attempts:  c.pollMaxAttempts,
				Interval:  c.pollInterval,
			}
		}
		return nil, err
	}
	return final, nil
}
