package persist

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// snapshotMagic/snapshotVersion frame a flat-file alternative to Store,
// for a resumable run with no database configured. Adapted from
// internal/buildutil/build.go's BytecodeFile framing (magic number,
// version, then a length-prefixed record per entry) with VM bytecode
// chunks replaced by JSON procedure records.
const (
	snapshotMagic = 0x424d5247 // "BMRG"
	snapshotVersion = 1
)

// ProcRecord is one procedure's persisted progress.
type ProcRecord struct {
	Address uint64 `json:"address"`
	Name string `json:"name"`
	Status int `json:"status"`
	Signature signatureRecord `json:"signature"`
}

// WriteSnapshot writes pr's current per-procedure progress to w.
func WriteSnapshot(w io.Writer, pr *proc.Program) error {
	bw := bufio.NewWriter(w)
	procs := pr.UserProcs()

	if err := writeUint32(bw, snapshotMagic); err != nil {
		return err
	}
	if err := writeUint32(bw, snapshotVersion); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(len(procs))); err != nil {
		return err
	}
	for _, up := range procs {
		rec := ProcRecord{
			Address: up.Address(),
			Name: up.ProcName(),
			Status: int(up.Status),
			Signature: toRecord(up.Signature()),
		}
		blob, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("persist: marshal %s: %w", up.ProcName(), err)
		}
		if err := writeUint32(bw, uint32(len(blob))); err != nil {
			return err
		}
		if _, err := bw.Write(blob); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSnapshotFile writes pr's progress to path and logs the resulting
// file size in human-readable form.
func WriteSnapshotFile(path string, pr *proc.Program, log *logging.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create snapshot %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteSnapshot(f, pr); err != nil {
		return err
	}
	if log != nil {
		if info, statErr := f.Stat(); statErr == nil {
			log.WithPass("persist").Info("wrote snapshot %s (%s)", path, humanize.Bytes(uint64(info.Size())))
		}
	}
	return nil
}

// ReadSnapshot reads records written by WriteSnapshot and raises each
// matching procedure in pr to the saved status if it's further along
// than what pr already has, letting a resumed run skip procedures a
// prior run already finished. It returns how many records it applied.
func ReadSnapshot(r io.Reader, pr *proc.Program) (int, error) {
	br := bufio.NewReader(r)

	magic, err := readUint32(br)
	if err != nil {
		return 0, err
	}
	if magic != snapshotMagic {
		return 0, fmt.Errorf("persist: bad snapshot magic %#x", magic)
	}
	version, err := readUint32(br)
	if err != nil {
		return 0, err
	}
	if version != snapshotVersion {
		return 0, fmt.Errorf("persist: unsupported snapshot version %d", version)
	}
	count, err := readUint32(br)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := uint32(0); i < count; i++ {
		size, err := readUint32(br)
		if err != nil {
			return applied, err
		}
		blob := make([]byte, size)
		if _, err := io.ReadFull(br, blob); err != nil {
			return applied, err
		}
		var rec ProcRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return applied, fmt.Errorf("persist: unmarshal record %d: %w", i, err)
		}
		if p, ok := pr.FindByAddr(rec.Address); ok {
			if up, ok := p.(*proc.UserProc); ok && proc.Status(rec.Status) > up.Status {
				up.Status = proc.Status(rec.Status)
				applied++
			}
		}
	}
	return applied, nil
}

// ReadSnapshotFile is ReadSnapshot opened against a path.
func ReadSnapshotFile(path string, pr *proc.Program) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("persist: open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f, pr)
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
