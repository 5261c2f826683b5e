package runtime

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	parser "github.com/gpustack/gguf-parser-go"
)

// ggufMagic is the little-endian magic at the start of every GGUF file.
const ggufMagic = 0x46554747 // "GGUF"

// ggufMaxVersion is the newest header version this build accepts.
const ggufMaxVersion = 3

// GGUFInfo is the metadata extracted from a validated model file.
type GGUFInfo struct {
	Architecture string
	Parameters   string
	Quantization string
}

// ValidateGGUF checks that path points at a readable GGUF model file before
// any handle is committed to the registry. A missing or unreadable file is a
// source error; a bad magic or unsupported header version is a format error.
func ValidateGGUF(path string) (GGUFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return GGUFInfo{}, ErrSourceUnavailable(fmt.Sprintf("open model source %s: %v", path, err))
	}
	defer f.Close()

	var header struct {
		Magic   uint32
		Version uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return GGUFInfo{}, ErrInvalidFormat(fmt.Sprintf("read gguf header %s: %v", path, err))
	}
	if header.Magic != ggufMagic {
		return GGUFInfo{}, ErrInvalidFormat(fmt.Sprintf("%s: not a gguf file (magic %#x)", path, header.Magic))
	}
	if header.Version == 0 || header.Version > ggufMaxVersion {
		return GGUFInfo{}, ErrInvalidFormat(fmt.Sprintf("%s: unsupported gguf version %d", path, header.Version))
	}

	return ggufMetadata(path), nil
}

// ggufMetadata enriches the handle with parsed model metadata. Parsing is
// best effort: a file that passed the magic check but carries metadata the
// parser cannot digest still loads, just without annotations.
func ggufMetadata(path string) GGUFInfo {
	gf, err := parser.ParseGGUFFile(path)
	if err != nil {
		return GGUFInfo{}
	}
	md := gf.Metadata()
	return GGUFInfo{
		Architecture: strings.TrimSpace(md.Architecture),
		Parameters:   strings.TrimSpace(md.Parameters.String()),
		Quantization: strings.TrimSpace(md.FileType.String()),
	}
}

// OpenGGUF validates a GGUF model source and constructs a text generation
// backend for it, returning the parsed metadata alongside. The generator is
// llama.cpp-backed when the binary is built with the llama tag; otherwise
// invoking it reports the backend as unavailable rather than mocking output.
func OpenGGUF(path string, opts LlamaOptions) (TextGenerator, GGUFInfo, error) {
	info, err := ValidateGGUF(path)
	if err != nil {
		return nil, GGUFInfo{}, err
	}
	return newLlamaGenerator(path, info, opts), info, nil
}

// LlamaOptions configures the native text backend.
type LlamaOptions struct {
	// Context window size; 0 uses the backend default.
	CtxSize int
	// Worker threads; 0 lets the backend decide.
	Threads int
}
