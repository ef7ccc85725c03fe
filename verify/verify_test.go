package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/contracts"
)

type fakeExplorer struct {
	lock        sync.Mutex
	forms       []map[string]string
	pending     int
	finalStatus string
	result      string
	submit      response
	// failures answered with 502 before the next request is served
	failures int
}

func (f *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.failures > 0 {
		f.failures--
		w.WriteHeader(http.StatusBadGateway)

		return
	}

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	var resp response

	switch r.Form.Get("action") {
	case "verifysourcecode":
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		f.forms = append(f.forms, form)
		resp = f.submit
	case "checkverifystatus":
		if f.pending > 0 {
			f.pending--
			resp = response{Status: "0", Message: "NOTOK", Result: pendingResult}
		} else {
			status := f.finalStatus
			if status == "" {
				status = statusOK
			}

			resp = response{Status: status, Message: "OK", Result: f.result}
		}
	default:
		w.WriteHeader(http.StatusNotFound)

		return
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func farmArtifact() *contracts.Artifact {
	return &contracts.Artifact{
		ContractName: contracts.TokenFarm.Name,
		Abi:          contracts.TokenFarm.Abi,
		Bytecode:     []byte{0x60, 0x80},
		Source:       "import \"@openzeppelin/contracts/access/Ownable.sol\"; contract TokenFarm {}",
		SourcePath:   "contracts/TokenFarm.sol",
		Sources: map[string]string{
			"@openzeppelin/contracts/access/Ownable.sol": "contract Ownable {}",
		},
		Compiler: &contracts.Compiler{
			Version:    "0.8.0+commit.c7dfd78e",
			Optimizer:  contracts.Optimizer{Enabled: true, Runs: 200},
			Remappings: []string{"@openzeppelin=OpenZeppelin/openzeppelin-contracts@4.2.0"},
		},
	}
}

func newTestClient(t *testing.T, explorer *fakeExplorer) *Client {
	t.Helper()

	server := httptest.NewServer(explorer)
	t.Cleanup(server.Close)

	client, err := NewClient(hclog.NewNullLogger(), server.URL,
		WithAPIKey("key"),
		WithPollInterval(time.Millisecond),
		WithMaxPolls(5),
		WithRetries(2, time.Millisecond, time.Millisecond),
	)
	require.NoError(t, err)

	return client
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{
		submit:  response{Status: "1", Message: "OK", Result: "guid-1"},
		pending: 2,
		result:  "Pass - Verified",
	}
	client := newTestClient(t, explorer)

	dappToken := ethgo.Address{0x11}
	require.NoError(t, client.Verify(context.Background(), farmArtifact(), ethgo.Address{0x22}, dappToken))

	require.Len(t, explorer.forms, 1)
	form := explorer.forms[0]
	assert.Equal(t, "contracts/TokenFarm.sol:TokenFarm", form["contractname"])
	assert.Equal(t, "solidity-standard-json-input", form["codeformat"])
	assert.Equal(t, "v0.8.0+commit.c7dfd78e", form["compilerversion"])
	assert.Equal(t, "1", form["optimizationUsed"])
	assert.Equal(t, "200", form["runs"])
	assert.Equal(t, "key", form["apikey"])
	// single address argument padded to a word
	assert.Len(t, form["constructorArguements"], 64)
	assert.Equal(t, 0, explorer.pending)

	// the imports are submitted with the contract
	var input standardInput
	require.NoError(t, json.Unmarshal([]byte(form["sourceCode"]), &input))
	assert.Equal(t, "Solidity", input.Language)
	assert.Len(t, input.Sources, 2)
	assert.Contains(t, input.Sources["contracts/TokenFarm.sol"].Content, "contract TokenFarm")
	assert.Equal(t, "contract Ownable {}", input.Sources["@openzeppelin/contracts/access/Ownable.sol"].Content)
	assert.True(t, input.Settings.Optimizer.Enabled)
	assert.Equal(t, 200, input.Settings.Optimizer.Runs)
	assert.Len(t, input.Settings.Remappings, 1)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{
		submit:   response{Status: "1", Message: "OK", Result: "guid-4"},
		failures: 2,
		result:   "Pass - Verified",
	}
	client := newTestClient(t, explorer)

	require.NoError(t, client.Verify(context.Background(), farmArtifact(), ethgo.Address{0x22}, ethgo.Address{0x11}))
	assert.Len(t, explorer.forms, 1)
	assert.Equal(t, 0, explorer.failures)
}

func TestClient_GivesUpOnPersistentFailures(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{failures: 100}
	client := newTestClient(t, explorer)

	req, err := NewRequest(farmArtifact(), ethgo.Address{0x22}, []interface{}{ethgo.Address{0x11}})
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), req)
	require.Error(t, err)
	// one attempt plus two retries
	assert.Equal(t, 97, explorer.failures)
}

func TestClient_AlreadyVerified(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{
		submit: response{Status: "0", Message: "NOTOK", Result: "Contract source code already verified"},
	}
	client := newTestClient(t, explorer)

	require.NoError(t, client.Verify(context.Background(), farmArtifact(), ethgo.Address{0x22}, ethgo.Address{0x11}))
	assert.Len(t, explorer.forms, 1)
}

func TestClient_SubmissionRejected(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{
		submit: response{Status: "0", Message: "NOTOK", Result: "Invalid constructor arguments"},
	}
	client := newTestClient(t, explorer)

	err := client.Verify(context.Background(), farmArtifact(), ethgo.Address{0x22}, ethgo.Address{0x11})
	require.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorContains(t, err, "Invalid constructor arguments")
}

func TestClient_VerificationFails(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{
		submit:      response{Status: "1", Message: "OK", Result: "guid-2"},
		finalStatus: "0",
		result:      "Fail - Unable to verify",
	}
	client := newTestClient(t, explorer)

	err := client.Verify(context.Background(), farmArtifact(), ethgo.Address{0x22}, ethgo.Address{0x11})
	require.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorContains(t, err, "Unable to verify")
}

func TestClient_StatusPollingExhausted(t *testing.T) {
	t.Parallel()

	explorer := &fakeExplorer{pending: 100}
	client := newTestClient(t, explorer)

	err := client.WaitForStatus(context.Background(), "guid-3")
	require.ErrorContains(t, err, "failed to get verification status of guid-3")
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	_, err := NewClient(hclog.NewNullLogger(), "https://api.example")
	require.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv(APIKeyEnv, "from-env")

	client, err := NewClient(hclog.NewNullLogger(), "https://api.example")
	require.NoError(t, err)
	assert.Equal(t, "from-env", client.apiKey)
}

func TestNewRequest_RequiresSource(t *testing.T) {
	t.Parallel()

	artifact := farmArtifact()
	artifact.Source = ""

	_, err := NewRequest(artifact, ethgo.Address{0x1}, []interface{}{ethgo.Address{0x2}})
	require.ErrorContains(t, err, "no source")
}
