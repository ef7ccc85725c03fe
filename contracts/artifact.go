package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/umbracle/ethgo/abi"

	"github.com/0xPolygon/token-farm/helper/hex"
)

// DefaultBuildDir is the output directory of the contract toolchain
const DefaultBuildDir = "./build"

// ArtifactSource provides compiled contracts by artifact name
type ArtifactSource interface {
	Artifact(name string) (*Artifact, error)
}

// ReadRawArtifact loads raw SC artifact data from the provided build folder
// and a file name containing artifact (without extension)
func ReadRawArtifact(buildDir, contractName string) ([]byte, error) {
	fileName := filepath.Join(buildDir, "contracts", fmt.Sprintf("%s.json", contractName))

	absolutePath, err := filepath.Abs(fileName)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(filepath.Clean(absolutePath))
}

// DecodeArtifact unmarshals provided raw json content into an Artifact instance
func DecodeArtifact(data []byte) (*Artifact, error) {
	var hexRes HexArtifact
	if err := json.Unmarshal(data, &hexRes); err != nil {
		return nil, fmt.Errorf("artifact found but no correct format: %w", err)
	}

	bytecode, err := hex.DecodeHex(hexRes.ByteCode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s has invalid bytecode: %w", hexRes.ContractName, err)
	}

	if len(bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", hexRes.ContractName)
	}

	deployedBytecode, err := hex.DecodeHex(hexRes.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s has invalid deployed bytecode: %w", hexRes.ContractName, err)
	}

	return &Artifact{
		ContractName:     hexRes.ContractName,
		Abi:              hexRes.Abi,
		Bytecode:         bytecode,
		DeployedBytecode: deployedBytecode,
		Source:           hexRes.Source,
		SourcePath:       hexRes.SourcePath,
		Sources:          hexRes.Sources,
		Compiler:         hexRes.Compiler,
	}, nil
}

// LoadArtifactFromFile reads SC artifact file content and decodes it into an Artifact instance
func LoadArtifactFromFile(fileName string) (*Artifact, error) {
	jsonRaw, err := os.ReadFile(filepath.Clean(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact from file '%s': %w", fileName, err)
	}

	return DecodeArtifact(jsonRaw)
}

type HexArtifact struct {
	ContractName     string            `json:"contractName"`
	Abi              *abi.ABI          `json:"abi"`
	ByteCode         string            `json:"bytecode"`
	DeployedBytecode string            `json:"deployedBytecode"`
	Source           string            `json:"source"`
	SourcePath       string            `json:"sourcePath"`
	Sources          map[string]string `json:"sources"`
	Compiler         *Compiler         `json:"compiler"`
}

// Compiler describes the settings the artifact was compiled with
type Compiler struct {
	Version    string    `json:"version"`
	EVMVersion string    `json:"evm_version"`
	Optimizer  Optimizer `json:"optimizer"`
	Remappings []string  `json:"remappings"`
}

type Optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

type Artifact struct {
	ContractName     string
	Abi              *abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
	Source           string
	// SourcePath is the path of Source in the compilation unit
	SourcePath string
	// Sources holds every file of the compilation unit by path, imports included
	Sources  map[string]string
	Compiler *Compiler
}

// DeployInput returns the creation bytecode followed by the ABI encoded constructor arguments
func (a *Artifact) DeployInput(args []interface{}) ([]byte, error) {
	input := []byte{}
	input = append(input, a.Bytecode...)

	argsInput, err := a.EncodeConstructorArgs(args)
	if err != nil {
		return nil, err
	}

	return append(input, argsInput...), nil
}

// EncodeConstructorArgs ABI encodes the constructor arguments, empty when the
// contract has no constructor inputs
func (a *Artifact) EncodeConstructorArgs(args []interface{}) ([]byte, error) {
	if a.Abi == nil || a.Abi.Constructor == nil || a.Abi.Constructor.Inputs == nil {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s has no constructor arguments, got %d", a.ContractName, len(args))
		}

		return nil, nil
	}

	encoded, err := abi.Encode(args, a.Abi.Constructor.Inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s constructor arguments: %w", a.ContractName, err)
	}

	return encoded, nil
}

// Store loads artifacts from a build directory, caching each one after the
// first read. The cache is safe for concurrent use and holds every registered
// type plus the generic token mock.
type Store struct {
	buildDir  string
	artifacts *lru.Cache
}

// NewStore creates an artifact store rooted at the build directory
func NewStore(buildDir string) *Store {
	if buildDir == "" {
		buildDir = DefaultBuildDir
	}

	// lru.New only fails for a non-positive size
	cache, _ := lru.New(len(Types()) + 1)

	return &Store{
		buildDir:  buildDir,
		artifacts: cache,
	}
}

// Add registers an already decoded artifact
func (s *Store) Add(artifact *Artifact) {
	s.artifacts.Add(artifact.ContractName, artifact)
}

// BuildDir returns the directory artifacts are read from
func (s *Store) BuildDir() string {
	return s.buildDir
}

// Artifact returns the artifact of the named contract
func (s *Store) Artifact(name string) (*Artifact, error) {
	if cached, ok := s.artifacts.Get(name); ok {
		artifact, _ := cached.(*Artifact)

		return artifact, nil
	}

	raw, err := ReadRawArtifact(s.buildDir, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact: %w", name, err)
	}

	artifact, err := DecodeArtifact(raw)
	if err != nil {
		return nil, err
	}

	if artifact.ContractName == "" {
		artifact.ContractName = name
	}

	s.artifacts.Add(name, artifact)

	return artifact, nil
}
