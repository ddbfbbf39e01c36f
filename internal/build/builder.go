// Package build packages a decompiled Program's recovered procedures into
// a distributable bundle: one rendered file per procedure plus a JSON
// manifest, tar+gzip'd together behind a content checksum, repurposing a
// compiled-bundle layout for decompiler output instead of linked bytecode.
package build

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// Config controls where and under what name a Program's decompiled
// output is written.
type Config struct {
	OutputPath string // full output path; overrides Name-derived default
	Name string // bundle name, used to derive the default path
}

// Builder packages one Program's recovered procedures into a bundle.
type Builder struct {
	config Config
	log *logging.Logger
}

func NewBuilder(cfg Config, log *logging.Logger) *Builder {
	return &Builder{config: cfg, log: log}
}

// ProcOutput is one procedure's rendered body plus the signature it was
// recovered with.
type ProcOutput struct {
	Name string `json:"name"`
	Address uint64 `json:"address"`
	Status string `json:"status"`
	Signature string `json:"signature"`
	Body []byte `json:"-"`
}

// Manifest is the bundle-level metadata.
type Manifest struct {
	Version string `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	ProcCount int `json:"proc_count"`
	Checksum string `json:"checksum"`
	Procedures []ProcOutput `json:"procedures"`
}

// Build renders every user procedure in pr with render (the caller's
// emitter — cmd/boomerang supplies a minimal debug-dump renderer, emission
// itself being out of this package's scope) and writes a tar.gz bundle of
// one file per procedure plus manifest.json, returning the manifest it
// wrote.
func (b *Builder) Build(pr *proc.Program, render func(*proc.UserProc) []byte) (*Manifest, error) {
	procs := append([]*proc.UserProc(nil), pr.UserProcs()...)
	sort.Slice(procs, func(i, j int) bool { return procs[i].Address() < procs[j].Address() })

	outputs := make([]ProcOutput, 0, len(procs))
	sum := sha256.New()
	for _, up := range procs {
		body := render(up)
		sum.Write(body)
		outputs = append(outputs, ProcOutput{
			Name: up.ProcName(),
			Address: up.Address(),
			Status: up.Status.String(),
			Signature: signatureString(up.Signature()),
			Body: body,
		})
	}

	manifest := &Manifest{
		Version: "1",
		Timestamp: time.Now(),
		ProcCount: len(outputs),
		Checksum: hex.EncodeToString(sum.Sum(nil)),
		Procedures: outputs,
	}

	outputPath := b.outputPath()
	if err := b.writeBundle(manifest, outputPath); err != nil {
		return nil, fmt.Errorf("build: write bundle: %w", err)
	}
	if b.log != nil {
		if info, err := os.Stat(outputPath); err == nil {
			b.log.WithPass("build").Info("wrote %s (%s, %d procedures)",
				outputPath, humanize.Bytes(uint64(info.Size())), len(outputs))
		}
	}
	return manifest, nil
}

func signatureString(sig *proc.Signature) string {
	if sig == nil {
		return "void ()"
	}
	params := make([]string, 0, len(sig.Params))
	for _, p := range sig.Params {
		t := "?"
		if p.Type != nil {
			t = p.Type.String()
		}
		params = append(params, fmt.Sprintf("%s %s", t, p.Name))
	}
	ret := "void"
	if len(sig.Returns) > 0 && sig.Returns[0] != nil {
		ret = sig.Returns[0].String()
	}
	return fmt.Sprintf("%s %s(%s)", ret, sig.Name, strings.Join(params, ", "))
}

func (b *Builder) outputPath() string {
	if b.config.OutputPath != "" {
		return b.config.OutputPath
	}
	name := b.config.Name
	if name == "" {
		name = "program"
	}
	return filepath.Join("dist", name+".bmrb")
}

func (b *Builder) writeBundle(m *Manifest, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	manifestData, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return err
	}
	if err := writeTarEntry(tw, "manifest.json", manifestData, m.Timestamp); err != nil {
		return err
	}
	for _, p := range m.Procedures {
		name := "procs/" + strings.ReplaceAll(p.Name, "/", "_") + ".c"
		if err := writeTarEntry(tw, name, p.Body, m.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{Name: name, Mode: 0644, Size: int64(len(data)), ModTime: modTime}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// Clean removes a previously written bundle.
func (b *Builder) Clean() error {
	return os.Remove(b.outputPath())
}
