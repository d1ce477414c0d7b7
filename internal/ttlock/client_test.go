package ttlock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token      string
	refreshed  string
	refreshErr error
	tokenCalls int
	refreshes  int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.tokenCalls++
	return f.token, nil
}

func (f *fakeTokens) Refresh(context.Context) (string, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshed, nil
}

type failingTokens struct{ err error }

func (f failingTokens) Token(context.Context) (string, error)   { return "", f.err }
func (f failingTokens) Refresh(context.Context) (string, error) { return "", f.err }

func testRequest() CreateRequest {
	return CreateRequest{
		LockID:    16273050,
		Code:      "1234",
		GuestName: "Ann Smith",
		Label:     "Front Door Streatham",
		Reference: "123-456-789",
		Start:     time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 9, 4, 11, 0, 0, 0, time.UTC),
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "client-1", tokens, 2*time.Second)
}

func TestCreateCode_Created(t *testing.T) {
	tokens := &fakeTokens{token: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v3/keyboardPwd/add", r.URL.Path)
		assert.Equal(t, "client-1", r.PostForm.Get("clientId"))
		assert.Equal(t, "tok-1", r.PostForm.Get("accessToken"))
		assert.Equal(t, "1234", r.PostForm.Get("keyboardPwd"))
		assert.Equal(t, "Ann Smith - Front Door Streatham - 123-456-789", r.PostForm.Get("keyboardPwdName"))
		assert.Equal(t, "3", r.PostForm.Get("keyboardPwdType"))
		assert.Equal(t, "2", r.PostForm.Get("addType"))
		fmt.Fprint(w, `{"errcode":0,"keyboardPwdId":99}`)
	}, tokens)

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, 0, tokens.refreshes)
}

func TestCreateCode_DuplicatePasscode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":-3007,"errmsg":"The password already exists"}`)
	}, &fakeTokens{token: "tok-1"})

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome, "duplicate is success, never retried")
	assert.Equal(t, -3007, res.Errcode)
}

func TestCreateCode_VendorError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":-1,"errmsg":"server busy"}`)
	}, &fakeTokens{token: "tok-1"})

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransient, res.Outcome)
	assert.Contains(t, res.Detail, "server busy")
}

func TestCreateCode_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>gateway error</html>`)
	}, &fakeTokens{token: "tok-1"})

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransient, res.Outcome)
}

func TestCreateCode_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := New(srv.URL, "client-1", &fakeTokens{token: "tok-1"}, time.Second)

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransient, res.Outcome)
	assert.NotEmpty(t, res.Detail)
}

func TestCreateCode_InvalidTokenRefreshesOnce(t *testing.T) {
	tokens := &fakeTokens{token: "stale", refreshed: "fresh"}
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		calls++
		if r.PostForm.Get("accessToken") == "stale" {
			fmt.Fprint(w, `{"errcode":10003,"errmsg":"invalid token"}`)
			return
		}
		fmt.Fprint(w, `{"errcode":0}`)
	}, tokens)

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, calls)
}

func TestCreateCode_RetryAfterRefreshClassifiedOnItsOwn(t *testing.T) {
	tokens := &fakeTokens{token: "stale", refreshed: "still-bad"}
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"errcode":10003,"errmsg":"invalid token"}`)
	}, tokens)

	res, err := c.CreateCode(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransient, res.Outcome, "second rejection is not refreshed again")
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, calls)
}

func TestCreateCode_RefreshFailure(t *testing.T) {
	tokens := &fakeTokens{token: "stale", refreshErr: errors.New("refresh exchange failed")}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":10004}`)
	}, tokens)

	_, err := c.CreateCode(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh")
}

func TestCreateCode_NoToken(t *testing.T) {
	sentinel := errors.New("no vendor token")
	c := New("http://127.0.0.1:1", "client-1", failingTokens{err: sentinel}, time.Second)

	_, err := c.CreateCode(context.Background(), testRequest())
	assert.ErrorIs(t, err, sentinel, "no vendor call without a token")
}

func TestListCodes_Pagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/keyboardPwd/query", r.URL.Path)
		switch r.URL.Query().Get("pageNo") {
		case "1":
			fmt.Fprint(w, fullPage())
		default:
			fmt.Fprint(w, `{"errcode":0,"list":[{"keyboardPwdId":200,"keyboardPwd":"5678"}]}`)
		}
	}, &fakeTokens{token: "tok-1"})

	codes, err := c.ListCodes(context.Background(), 16273050)
	require.NoError(t, err)
	assert.Len(t, codes, pageSize+1)
	assert.Equal(t, "5678", codes[pageSize].Code)
}

func fullPage() string {
	s := `{"errcode":0,"list":[`
	for i := 0; i < pageSize; i++ {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"keyboardPwdId":%d,"keyboardPwd":"0000"}`, i)
	}
	return s + `]}`
}

func TestUnlockRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v3/lockRecord/list", r.URL.Path)
		assert.Equal(t, "16273050", r.PostForm.Get("lockId"))
		fmt.Fprint(w, `{"errcode":0,"list":[{"recordId":1,"lockId":16273050,"keyboardPwd":"1234","success":1}]}`)
	}, &fakeTokens{token: "tok-1"})

	records, err := c.UnlockRecords(context.Background(), 16273050)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1234", records[0].KeyboardPwd)
}
