// Package verify publishes contract sources to an Etherscan compatible block explorer
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sethvargo/go-retry"
	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/helper/hex"
)

const (
	// APIKeyEnv is the environment variable holding the explorer API key
	APIKeyEnv = "ETHERSCAN_TOKEN"

	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 12
	defaultRetryMax     = 3
	defaultHTTPTimeout  = 30 * time.Second

	codeFormat = "solidity-standard-json-input"

	statusOK      = "1"
	pendingResult = "Pending in queue"
	alreadyResult = "already verified"
)

var (
	ErrMissingAPIKey      = errors.New("explorer api key not set")
	ErrVerificationFailed = errors.New("source verification failed")
)

// Verifier publishes the source of a deployed contract
type Verifier interface {
	Verify(ctx context.Context, artifact *contracts.Artifact, address ethgo.Address, args ...interface{}) error
}

// Request is the explorer submission of a single contract
type Request struct {
	Address ethgo.Address
	// ContractName is qualified with its source path, path:Name
	ContractName string
	// SourceCode is the solc standard json input of the compilation unit
	SourceCode           string
	CompilerVersion      string
	OptimizationUsed     bool
	Runs                 int
	EVMVersion           string
	ConstructorArguments []byte
}

type standardSource struct {
	Content string `json:"content"`
}

type standardSettings struct {
	Optimizer       contracts.Optimizer            `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// standardInput is the solc standard json input. Imported files travel with
// the contract source so the explorer compiles the same unit the artifact
// was built from.
type standardInput struct {
	Language string                    `json:"language"`
	Sources  map[string]standardSource `json:"sources"`
	Settings standardSettings          `json:"settings"`
}

func newStandardInput(artifact *contracts.Artifact) (*standardInput, string, error) {
	sourcePath := artifact.SourcePath
	if sourcePath == "" {
		sourcePath = fmt.Sprintf("contracts/%s.sol", artifact.ContractName)
	}

	input := &standardInput{
		Language: "Solidity",
		Sources:  make(map[string]standardSource, len(artifact.Sources)+1),
		Settings: standardSettings{
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode", "evm.deployedBytecode"}},
			},
		},
	}

	for path, content := range artifact.Sources {
		input.Sources[path] = standardSource{Content: content}
	}

	if artifact.Source != "" {
		input.Sources[sourcePath] = standardSource{Content: artifact.Source}
	}

	if _, ok := input.Sources[sourcePath]; !ok {
		return nil, "", fmt.Errorf("artifact %s carries no source", artifact.ContractName)
	}

	if artifact.Compiler != nil {
		input.Settings.Optimizer = artifact.Compiler.Optimizer
		input.Settings.EVMVersion = artifact.Compiler.EVMVersion
		input.Settings.Remappings = artifact.Compiler.Remappings
	}

	return input, sourcePath, nil
}

// NewRequest builds the submission of an artifact deployed at address with the given constructor arguments
func NewRequest(artifact *contracts.Artifact, address ethgo.Address, args []interface{}) (*Request, error) {
	input, sourcePath, err := newStandardInput(artifact)
	if err != nil {
		return nil, err
	}

	sourceCode, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	ctorArgs, err := artifact.EncodeConstructorArgs(args)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Address:              address,
		ContractName:         sourcePath + ":" + artifact.ContractName,
		SourceCode:           string(sourceCode),
		ConstructorArguments: ctorArgs,
	}

	if artifact.Compiler != nil {
		req.CompilerVersion = artifact.Compiler.Version
		req.OptimizationUsed = artifact.Compiler.Optimizer.Enabled
		req.Runs = artifact.Compiler.Optimizer.Runs
		req.EVMVersion = artifact.Compiler.EVMVersion
	}

	return req, nil
}

func (r *Request) values(apiKey string) url.Values {
	optimization := "0"
	if r.OptimizationUsed {
		optimization = "1"
	}

	values := url.Values{}
	values.Set("apikey", apiKey)
	values.Set("module", "contract")
	values.Set("action", "verifysourcecode")
	values.Set("contractaddress", r.Address.String())
	values.Set("sourceCode", r.SourceCode)
	values.Set("codeformat", codeFormat)
	values.Set("contractname", r.ContractName)
	values.Set("compilerversion", compilerVersion(r.CompilerVersion))
	values.Set("optimizationUsed", optimization)
	values.Set("runs", strconv.Itoa(r.Runs))
	values.Set("constructorArguements", strings.TrimPrefix(hex.EncodeToHex(r.ConstructorArguments), "0x"))

	if r.EVMVersion != "" {
		values.Set("evmversion", r.EVMVersion)
	}

	return values
}

func isAlreadyVerified(result string) bool {
	return strings.Contains(strings.ToLower(result), alreadyResult)
}

// explorers expect the version as v0.8.0+commit.c7dfd78e
func compilerVersion(version string) string {
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}

	return "v" + version
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Client talks to the explorer API. Requests failing with a connection error
// or a 5xx response are retried by the http client, pending verifications are
// polled on top of it.
type Client struct {
	logger       hclog.Logger
	endpoint     string
	apiKey       string
	httpClient   *retryablehttp.Client
	pollInterval time.Duration
	maxPolls     uint64
}

var _ Verifier = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient replaces the transport client the retrying client wraps
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithRetries sets how often a failed request is retried and the wait bounds between attempts
func WithRetries(retryMax int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithPollInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.pollInterval = interval
	}
}

func WithMaxPolls(maxPolls uint64) ClientOption {
	return func(c *Client) {
		c.maxPolls = maxPolls
	}
}

// NewClient creates an explorer client for the endpoint. The API key is read
// from ETHERSCAN_TOKEN unless given as an option.
func NewClient(logger hclog.Logger, endpoint string, opts ...ClientOption) (*Client, error) {
	logger = logger.Named("verify")

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = logger
	httpClient.RetryMax = defaultRetryMax
	httpClient.HTTPClient.Timeout = defaultHTTPTimeout

	c := &Client{
		logger:       logger,
		endpoint:     endpoint,
		apiKey:       os.Getenv(APIKeyEnv),
		httpClient:   httpClient,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.endpoint == "" {
		return nil, errors.New("explorer endpoint not set")
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: export %s", ErrMissingAPIKey, APIKeyEnv)
	}

	return c, nil
}

// Verify submits the source of the contract and waits for the explorer to process it
func (c *Client) Verify(ctx context.Context, artifact *contracts.Artifact,
	address ethgo.Address, args ...interface{}) error {
	req, err := NewRequest(artifact, address, args)
	if err != nil {
		return err
	}

	guid, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}

	if guid == "" {
		return nil
	}

	return c.WaitForStatus(ctx, guid)
}

// Submit sends the verification request and returns the explorer receipt
// guid, empty when the contract is already verified
func (c *Client) Submit(ctx context.Context, req *Request) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, req.values(c.apiKey))
	if err != nil {
		return "", err
	}

	if resp.Status != statusOK {
		if isAlreadyVerified(resp.Result) {
			c.logger.Info("contract already verified", "contract", req.ContractName, "address", req.Address)

			return "", nil
		}

		return "", fmt.Errorf("%w: %s: %s", ErrVerificationFailed, resp.Message, resp.Result)
	}

	c.logger.Info("verification submitted", "contract", req.ContractName, "guid", resp.Result)

	return resp.Result, nil
}

// WaitForStatus polls the explorer until the submission is processed
func (c *Client) WaitForStatus(ctx context.Context, guid string) error {
	values := url.Values{}
	values.Set("apikey", c.apiKey)
	values.Set("module", "contract")
	values.Set("action", "checkverifystatus")
	values.Set("guid", guid)

	backoff := retry.WithMaxRetries(c.maxPolls, retry.NewConstant(c.pollInterval))

	var final *response

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, values)
		if err != nil {
			return retry.RetryableError(err)
		}

		if strings.Contains(resp.Result, pendingResult) {
			c.logger.Debug("verification pending", "guid", guid)

			return retry.RetryableError(errors.New(resp.Result))
		}

		final = resp

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to get verification status of %s: %w", guid, err)
	}

	if final.Status != statusOK && !isAlreadyVerified(final.Result) {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, final.Result)
	}

	c.logger.Info("contract verified", "guid", guid, "result", final.Result)

	return nil
}

func (c *Client) do(ctx context.Context, method string, values url.Values) (*response, error) {
	var (
		req *retryablehttp.Request
		err error
	)

	if method == http.MethodGet {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, c.endpoint+"?"+values.Encode(), nil)
	} else {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, c.endpoint, []byte(values.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned %s", httpResp.Status)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	return &resp, nil
}
