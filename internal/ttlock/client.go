// Package ttlock is a minimal TTLock cloud API client covering keyboard
// password creation, password queries and unlock records. Endpoints and the
// form-encoded request shape follow the v3 API.
package ttlock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Vendor errcodes the engine cares about.
const (
	errcodeOK                = 0
	errcodeDuplicatePasscode = -3007
)

// errcodes that mean the access token is invalid or expired.
func isInvalidToken(errcode int) bool {
	switch errcode {
	case 10003, 10004, -2010:
		return true
	}
	return false
}

type Outcome int

const (
	// OutcomeCreated: the code now exists on the lock.
	OutcomeCreated Outcome = iota
	// OutcomeDuplicate: the code already existed. Equivalent to success and
	// never retried.
	OutcomeDuplicate
	// OutcomeTransient: vendor error, malformed response or network failure.
	// Worth retrying up to the orchestrator's cap.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "transient"
	}
}

// Result is a classified vendor response. Detail carries the raw response
// body (or transport error text) for the reconciliation log.
type Result struct {
	Outcome Outcome
	Errcode int
	Errmsg  string
	Detail  string
}

// TokenSource supplies the current bearer token and can force a refresh when
// the vendor rejects it mid-call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

type Client struct {
	hc       *http.Client
	base     string
	clientID string
	tokens   TokenSource
}

func New(base, clientID string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		base:     strings.TrimRight(base, "/"),
		clientID: clientID,
		tokens:   tokens,
	}
}

type CreateRequest struct {
	LockID    int64
	Code      string
	GuestName string
	Label     string // e.g. "Front Door Streatham" or "Streatham Room 3"
	Reference string
	Start     time.Time
	End       time.Time
}

// CreateCode issues one keyboardPwd/add call. An invalid-token errcode
// triggers exactly one token refresh and one retry of the same call; the
// retry's response is classified on its own. The returned error is non-nil
// only when no authenticated call could be made at all (credential failure).
func (c *Client) CreateCode(ctx context.Context, req CreateRequest) (Result, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return Result{}, err
	}

	res := c.addCode(ctx, tok, req)
	if isInvalidToken(res.Errcode) {
		tok, err = c.tokens.Refresh(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("token refresh after errcode %d: %w", res.Errcode, err)
		}
		res = c.addCode(ctx, tok, req)
	}
	return res, nil
}

func (c *Client) addCode(ctx context.Context, token string, req CreateRequest) Result {
	form := url.Values{
		"clientId":        {c.clientID},
		"accessToken":     {token},
		"lockId":          {strconv.FormatInt(req.LockID, 10)},
		"keyboardPwd":     {req.Code},
		"keyboardPwdName": {fmt.Sprintf("%s - %s - %s", req.GuestName, req.Label, req.Reference)},
		"keyboardPwdType": {"3"}, // period
		"startDate":       {strconv.FormatInt(req.Start.UnixMilli(), 10)},
		"endDate":         {strconv.FormatInt(req.End.UnixMilli(), 10)},
		"addType":         {"2"}, // via cloud
		"date":            {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}

	body, err := c.postForm(ctx, "/v3/keyboardPwd/add", form)
	if err != nil {
		return Result{Outcome: OutcomeTransient, Detail: err.Error()}
	}

	var resp struct {
		Errcode int    `json:"errcode"`
		Errmsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{Outcome: OutcomeTransient, Detail: "invalid JSON from vendor: " + string(body)}
	}

	res := Result{Errcode: resp.Errcode, Errmsg: resp.Errmsg, Detail: string(body)}
	switch resp.Errcode {
	case errcodeOK:
		res.Outcome = OutcomeCreated
	case errcodeDuplicatePasscode:
		res.Outcome = OutcomeDuplicate
	default:
		res.Outcome = OutcomeTransient
	}
	return res
}

// Code is one keyboard password as reported by keyboardPwd/query.
type Code struct {
	ID        int64  `json:"keyboardPwdId"`
	Code      string `json:"keyboardPwd"`
	Name      string `json:"keyboardPwdName"`
	StartDate int64  `json:"startDate"` // ms epoch, 0 = permanent
	EndDate   int64  `json:"endDate"`
}

const pageSize = 100

// ListCodes fetches every keyboard password on a lock, following pagination.
func (c *Client) ListCodes(ctx context.Context, lockID int64) ([]Code, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var all []Code
	for pageNo := 1; ; pageNo++ {
		q := url.Values{
			"clientId":    {c.clientID},
			"accessToken": {tok},
			"lockId":      {strconv.FormatInt(lockID, 10)},
			"pageNo":      {strconv.Itoa(pageNo)},
			"pageSize":    {strconv.Itoa(pageSize)},
		}
		body, err := c.get(ctx, "/v3/keyboardPwd/query", q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Errcode int    `json:"errcode"`
			Errmsg  string `json:"errmsg"`
			List    []Code `json:"list"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("keyboardPwd/query lock %d: invalid JSON", lockID)
		}
		if resp.Errcode != errcodeOK {
			return nil, fmt.Errorf("keyboardPwd/query lock %d: errcode %d %s", lockID, resp.Errcode, resp.Errmsg)
		}
		all = append(all, resp.List...)
		if len(resp.List) < pageSize {
			return all, nil
		}
	}
}

// UnlockRecord is one entry from lockRecord/list.
type UnlockRecord struct {
	RecordID    int64  `json:"recordId"`
	LockID      int64  `json:"lockId"`
	RecordType  int    `json:"recordType"`
	Success     int    `json:"success"`
	KeyboardPwd string `json:"keyboardPwd"`
	Username    string `json:"username"`
	LockDate    int64  `json:"lockDate"`   // ms epoch, time on the lock
	ServerDate  int64  `json:"serverDate"` // ms epoch, time uploaded
}

// UnlockRecords fetches the most recent unlock events for a lock.
func (c *Client) UnlockRecords(ctx context.Context, lockID int64) ([]UnlockRecord, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"clientId":    {c.clientID},
		"accessToken": {tok},
		"lockId":      {strconv.FormatInt(lockID, 10)},
		"date":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		"pageNo":      {"1"},
		"pageSize":    {strconv.Itoa(pageSize)},
	}
	body, err := c.postForm(ctx, "/v3/lockRecord/list", form)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Errcode int            `json:"errcode"`
		Errmsg  string         `json:"errmsg"`
		List    []UnlockRecord `json:"list"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lockRecord/list lock %d: invalid JSON", lockID)
	}
	if resp.Errcode != errcodeOK {
		return nil, fmt.Errorf("lockRecord/list lock %d: errcode %d %s", lockID, resp.Errcode, resp.Errmsg)
	}
	return resp.List, nil
}
