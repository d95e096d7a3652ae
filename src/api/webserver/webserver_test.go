package webserver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/cache"
	"github.com/stake-plus/solana-dao-radar/src/data"
	"github.com/stake-plus/solana-dao-radar/src/governance"
	"github.com/stake-plus/solana-dao-radar/src/notify"
	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/rpcproxy"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
	"github.com/stake-plus/solana-dao-radar/src/summary"
	"github.com/stake-plus/solana-dao-radar/src/voting"
)

func init() { gin.SetMode(gin.TestMode) }

var secret = []byte("test-secret")

const proposalID = "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"

func voterKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))
}

func walletOf(k ed25519.PrivateKey) string {
	var pk solana.PublicKey
	copy(pk[:], k.Public().(ed25519.PublicKey))
	return pk.String()
}

func signB58(k ed25519.PrivateKey, msg string) string {
	var sig solana.Signature
	copy(sig[:], ed25519.Sign(k, []byte(msg)))
	return sig.String()
}

type fakeOrgs struct {
	views []governance.DAOView
	err   error
	gotPG string
}

func (f *fakeOrgs) GetUserOrganizations(_ context.Context, _ string) ([]governance.DAOView, error) {
	return f.views, f.err
}

func (f *fakeOrgs) GetOrganization(_ context.Context, id string) (*governance.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &governance.Organization{ID: id, Name: "Mango DAO"}, nil
}

func (f *fakeOrgs) GetOrganizationProposals(_ context.Context, _, program string) ([]governance.Proposal, error) {
	f.gotPG = program
	return nil, f.err
}

func (f *fakeOrgs) GetVoterRecord(context.Context, string, string, string) (*governance.TokenOwnerRecord, error) {
	return nil, f.err
}

func (f *fakeOrgs) GetProposal(_ context.Context, _ string) (*governance.ProposalDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := &governance.ProposalDetail{StateLabel: "Voting", Active: true}
	d.Account.Name = "Raise fees"
	d.Account.DescriptionLink = "https://desc.example/1"
	return d, nil
}

func (f *fakeOrgs) GetVoteRecordFor(context.Context, string, string) (*governance.VoteRecord, error) {
	return nil, f.err
}

func (f *fakeOrgs) GetUserVoteHistory(_ context.Context, _ string, limit int) ([]governance.VoteHistoryItem, error) {
	return make([]governance.VoteHistoryItem, limit), f.err
}

func (f *fakeOrgs) ActiveProposalAlerts(context.Context, string) ([]notify.Alert, error) {
	return []notify.Alert{{ProposalID: "p1", ProposalName: "Raise fees", DAOName: "Mango DAO", RealmID: "r1"}}, f.err
}

type fakeBrowse struct {
	invalidated int
	featuredErr error
}

func (f *fakeBrowse) Featured(ctx context.Context) ([]governance.DAOView, error) {
	f.featuredErr = ctx.Err()
	return []governance.DAOView{{RealmID: "r1", Name: "Mango DAO", Minimal: true}}, nil
}

func (f *fakeBrowse) All(context.Context) ([]governance.OrganizationSummary, error) {
	return []governance.OrganizationSummary{{ID: "r1", Name: "Mango DAO"}}, nil
}

func (f *fakeBrowse) Invalidate(context.Context) { f.invalidated++ }

type fakeRegistry struct{}

func (fakeRegistry) GetAll(context.Context) ([]registry.Entry, error) {
	return []registry.Entry{{RealmID: "r1", DisplayName: "Mango DAO"}}, nil
}

type fakeDescriber struct{}

func (fakeDescriber) Fetch(_ context.Context, link string) string { return "body of " + link }

type fakePipeline struct {
	req    voting.Request
	signer voting.Signer
	err    error
}

func (f *fakePipeline) Begin(_ context.Context, req voting.Request) (*voting.Attempt, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &voting.Attempt{ID: "a1", Message: "bXNn", Wallet: req.Wallet, Proposal: req.ProposalID, Choice: req.Choice}, nil
}

func (f *fakePipeline) Complete(_ context.Context, _ string, s voting.Signer) (voting.VoteView, error) {
	f.signer = s
	if f.err != nil {
		return voting.VoteView{State: voting.Failed}, f.err
	}
	return voting.VoteView{State: voting.Confirmed, Signature: "sig"}, nil
}

func (f *fakePipeline) View(string, string) (voting.VoteView, error) {
	return voting.VoteView{State: voting.Optimistic, Optimistic: true}, f.err
}

type fakeProxy struct{ key string }

func (f *fakeProxy) Forward(_ context.Context, key string, _ []byte) rpcproxy.Response {
	f.key = key
	return rpcproxy.Response{Status: http.StatusForbidden, Body: []byte(`{"error":"Method not allowed: x"}`)}
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, title, desc string) (summary.Result, error) {
	if title == "" && desc == "" {
		return summary.Result{}, errors.NotValidf("empty proposal")
	}
	return summary.Result{Summary: "short", Impact: "Unknown"}, nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type fixture struct {
	orgs     *fakeOrgs
	browse   *fakeBrowse
	pipeline *fakePipeline
	proxy    *fakeProxy
	engine   *gin.Engine
}

func newFixture(admins ...string) *fixture {
	f := &fixture{orgs: &fakeOrgs{}, browse: &fakeBrowse{}, pipeline: &fakePipeline{}, proxy: &fakeProxy{}}
	store := cache.NewMemoryStore(nil)
	f.engine = Engine(Routes{
		Auth:          NewAuth(data.NewNonces(store), secret),
		DAOs:          NewDAOs(f.orgs, f.browse, fakeRegistry{}),
		Proposals:     NewProposals(f.orgs, fakeDescriber{}),
		Votes:         NewVotes(f.pipeline),
		Notifications: NewNotifications(f.orgs, notify.NewTracker(notify.NewCacheSeenStore(store), notify.LogAlerter{})),
		RPC:           NewRPC(f.proxy, fakeSummarizer{}),
		Admin:         NewAdmin(f.browse),
		JWTSecret:     secret,
		CORS:          []string{"https://radar.example"},
		Admins:        admins,
		Limiter:       rpcproxy.NewLimiter(1000, 1000, nil),
	})
	return f
}

func (f *fixture) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var rd *bytes.Reader
	if s, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(s))
	} else {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func tokenFor(c *qt.C, wallet string) string {
	tok, err := issueJWT(wallet, secret)
	c.Assert(err, qt.IsNil)
	return tok
}

func TestPublicListings(t *testing.T) {
	c := qt.New(t)
	f := newFixture()

	w, body := f.do("GET", "/v1/registry", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["entries"], qt.HasLen, 1)

	w, body = f.do("GET", "/v1/daos/featured", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["daos"].([]any)[0].(map[string]any)["minimal"], qt.Equals, true)

	w, body = f.do("GET", "/v1/daos", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["daos"].([]any)[0].(map[string]any)["name"], qt.Equals, "Mango DAO")

	w, body = f.do("GET", "/v1/daos/r1", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["id"], qt.Equals, "r1")

	w, _ = f.do("GET", "/v1/daos/r1/proposals?program=Other111", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(f.orgs.gotPG, qt.Equals, "Other111")
}

func TestClientCancellationReachesServices(t *testing.T) {
	c := qt.New(t)
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/v1/daos/featured", nil).WithContext(ctx)
	f.engine.ServeHTTP(httptest.NewRecorder(), req)
	c.Assert(f.browse.featuredErr, qt.Equals, context.Canceled)

	f.do("GET", "/v1/daos/featured", "", nil)
	c.Assert(f.browse.featuredErr, qt.IsNil)
}

func TestProposalIncludesDescription(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	w, body := f.do("GET", "/v1/proposals/"+proposalID, "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["description"], qt.Equals, "body of https://desc.example/1")
}

func TestVoteHistoryLimit(t *testing.T) {
	c := qt.New(t)
	f := newFixture()

	_, body := f.do("GET", "/v1/wallets/w/votes", "", nil)
	c.Assert(body["votes"], qt.HasLen, governance.DefaultHistoryLimit)

	_, body = f.do("GET", "/v1/wallets/w/votes?limit=3", "", nil)
	c.Assert(body["votes"], qt.HasLen, 3)

	w, _ := f.do("GET", "/v1/wallets/w/votes?limit=-1", "", nil)
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)
}

func TestErrorMapping(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		err    error
		status int
		retry  any
	}{
		{errors.NotValidf("wallet"), http.StatusBadRequest, nil},
		{errors.NotFoundf("realm"), http.StatusNotFound, nil},
		{errors.Annotate(solana.ErrRateLimited, "getProgramAccounts"), http.StatusServiceUnavailable, true},
		{voting.ErrVoteInFlight, http.StatusConflict, nil},
		{voting.ErrAlreadyVoted, http.StatusConflict, nil},
		{&voting.SubmitError{Category: voting.CategorySimulation, Message: "no"}, http.StatusUnprocessableEntity, false},
		{&voting.SubmitError{Category: voting.CategoryTimeout, Message: "slow"}, http.StatusGatewayTimeout, true},
		{errors.New("boom"), http.StatusInternalServerError, nil},
	}
	for _, tc := range tests {
		f := newFixture()
		f.orgs.err = tc.err
		w, body := f.do("GET", "/v1/wallets/w/daos", "", nil)
		c.Check(w.Code, qt.Equals, tc.status, qt.Commentf("%v", tc.err))
		c.Check(body["retry"], qt.Equals, tc.retry, qt.Commentf("%v", tc.err))
	}
}

func TestSignInFlow(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	key := voterKey()
	wallet := walletOf(key)

	w, body := f.do("POST", "/v1/auth/challenge", "", map[string]string{"wallet": wallet})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	msg := body["message"].(string)
	c.Assert(msg, qt.Equals, challengeMessage(body["nonce"].(string)))

	w, body = f.do("POST", "/v1/auth/verify", "", map[string]string{"wallet": wallet, "signature": signB58(key, msg)})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	token := body["token"].(string)

	w, body = f.do("GET", "/v1/votes/"+proposalID, token, nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["state"], qt.Equals, voting.Optimistic.String())

	// the nonce was consumed
	w, body = f.do("POST", "/v1/auth/verify", "", map[string]string{"wallet": wallet, "signature": signB58(key, msg)})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(body["err"], qt.Equals, "challenge expired")
}

func TestSignInRejectsWrongSigner(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	wallet := walletOf(voterKey())
	other := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{9}, ed25519.SeedSize))

	_, body := f.do("POST", "/v1/auth/challenge", "", map[string]string{"wallet": wallet})
	w, body := f.do("POST", "/v1/auth/verify", "", map[string]string{
		"wallet":    wallet,
		"signature": signB58(other, body["message"].(string)),
	})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(body["err"], qt.Equals, "bad signature")

	w, _ = f.do("POST", "/v1/auth/challenge", "", map[string]string{"wallet": "nope"})
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)
}

func TestSecuredRoutesNeedToken(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	w, _ := f.do("POST", "/v1/votes", "", map[string]string{})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)

	w, _ = f.do("POST", "/v1/votes", "garbage", map[string]string{})
	c.Assert(w.Code, qt.Equals, http.StatusUnauthorized)
}

func TestBeginUsesTokenWallet(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	wallet := walletOf(voterKey())
	token := tokenFor(c, wallet)

	w, body := f.do("POST", "/v1/votes", token, map[string]string{
		"realmId": "r1", "proposalId": proposalID, "choice": "deny", "wallet": "someone-else",
	})
	c.Assert(w.Code, qt.Equals, http.StatusCreated)
	c.Assert(body["id"], qt.Equals, "a1")
	c.Assert(f.pipeline.req.Wallet, qt.Equals, wallet)
	c.Assert(f.pipeline.req.Choice, qt.Equals, splgov.VoteDeny)

	w, _ = f.do("POST", "/v1/votes", token, map[string]string{"realmId": "r1", "proposalId": proposalID})
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)

	f.pipeline.err = voting.ErrVoteInFlight
	w, _ = f.do("POST", "/v1/votes", token, map[string]string{"realmId": "r1", "proposalId": proposalID, "choice": "approve"})
	c.Assert(w.Code, qt.Equals, http.StatusConflict)
}

func TestSignatureCompletesAttempt(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	wallet := walletOf(voterKey())
	token := tokenFor(c, wallet)

	w, body := f.do("POST", "/v1/votes/a1/signature", token, map[string]string{"signature": "abc"})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["state"], qt.Equals, voting.Confirmed.String())
	signer := f.pipeline.signer.(voting.SignatureSigner)
	c.Assert(signer.Wallet.String(), qt.Equals, wallet)
	c.Assert(signer.Signature, qt.Equals, "abc")

	f.pipeline.err = voting.Classify(voting.ErrSignatureDeclined)
	w, body = f.do("POST", "/v1/votes/a1/signature", token, map[string]string{})
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(body["category"], qt.Equals, string(voting.CategoryRejected))
}

func TestNotificationsReportOnlyNew(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	token := tokenFor(c, walletOf(voterKey()))

	w, body := f.do("POST", "/v1/notifications", token, nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["new"], qt.HasLen, 1)
	c.Assert(body["message"].(map[string]any)["title"], qt.Equals, "New proposal in Mango DAO")

	_, body = f.do("POST", "/v1/notifications", token, nil)
	c.Assert(body["new"], qt.HasLen, 0)
	c.Assert(body["message"], qt.IsNil)
}

func TestRPCProxyRelaysVerbatim(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	req := httptest.NewRequest("POST", "/v1/rpc", bytes.NewReader([]byte(`{"method":"x"}`)))
	req.RemoteAddr = "203.0.113.9:4000"
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	c.Assert(w.Code, qt.Equals, http.StatusForbidden)
	c.Assert(w.Body.String(), qt.Equals, `{"error":"Method not allowed: x"}`)
	c.Assert(f.proxy.key, qt.Equals, "203.0.113.9")
}

func TestSummarize(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	w, body := f.do("POST", "/v1/summarize", "", map[string]string{"title": "Raise fees"})
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(body["summary"], qt.Equals, "short")

	w, _ = f.do("POST", "/v1/summarize", "", map[string]string{})
	c.Assert(w.Code, qt.Equals, http.StatusBadRequest)
}

func TestRateLimited(t *testing.T) {
	c := qt.New(t)
	store := cache.NewMemoryStore(nil)
	e := Engine(Routes{
		Auth:    NewAuth(data.NewNonces(store), secret),
		DAOs:    NewDAOs(&fakeOrgs{}, &fakeBrowse{}, fakeRegistry{}),
		Limiter: denyAll{},
	})
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest("GET", "/v1/registry", nil))
	c.Assert(w.Code, qt.Equals, http.StatusTooManyRequests)
}

func TestAdminRefresh(t *testing.T) {
	c := qt.New(t)
	admin := walletOf(voterKey())
	f := newFixture(admin)

	w, _ := f.do("POST", "/v1/admin/cache/refresh", tokenFor(c, "someone"), nil)
	c.Assert(w.Code, qt.Equals, http.StatusForbidden)
	c.Assert(f.browse.invalidated, qt.Equals, 0)

	w, _ = f.do("POST", "/v1/admin/cache/refresh", tokenFor(c, admin), nil)
	c.Assert(w.Code, qt.Equals, http.StatusOK)
	c.Assert(f.browse.invalidated, qt.Equals, 1)
}
