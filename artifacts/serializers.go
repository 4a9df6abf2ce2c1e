package artifacts

import (
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"
)

// utf8BOM lets spreadsheet tools detect the encoding of exported tables.
const utf8BOM = "\ufeff"

func dumpPlainText(fs afero.Fs, value any, dst string) error {
	return afero.WriteFile(fs, dst, []byte(value.(string)), 0o644)
}

// dumpTable writes the table as CSV, header first, without an index column.
func dumpTable(fs afero.Fs, value any, dst string) error {
	records := value.(Table).Records()

	f, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv %s: %w", dst, err)
	}
	return f.Close()
}

func dumpBooster(fs afero.Fs, value any, dst string) error {
	if err := requireOsFs(fs); err != nil {
		return err
	}
	return value.(Booster).SaveModel(dst)
}

// dumpPretrained covers both models and tokenizers.
func dumpPretrained(fs afero.Fs, value any, dst string) error {
	if err := requireOsFs(fs); err != nil {
		return err
	}
	type pretrained interface {
		SavePretrained(dir string) error
	}
	return value.(pretrained).SavePretrained(dst)
}

// requireOsFs guards serializers that hand dst to the value itself, which
// writes through the os package.
func requireOsFs(fs afero.Fs) error {
	if _, ok := fs.(*afero.OsFs); !ok {
		return fmt.Errorf("%w: got %s", ErrNeedsOSFs, fs.Name())
	}
	return nil
}

func dumpStateDict(fs afero.Fs, value any, dst string) error {
	nn := value.(NeuralNetwork)
	if err := nn.ToHost(); err != nil {
		return fmt.Errorf("failed to move model to host: %w", err)
	}
	return writeSafeTensors(fs, dst, nn.StateDict())
}

func dumpEstimator(fs afero.Fs, value any, dst string) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode estimator: %w", err)
	}
	return afero.WriteFile(fs, dst, b, 0o644)
}

type safeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// writeSafeTensors lays the state dict out as
// [8 bytes header size, uint64 LE][JSON header][tensor data],
// tensors in name order.
func writeSafeTensors(fs afero.Fs, dst string, state map[string]Tensor) error {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	header["__metadata__"] = map[string]string{"format": "pt"}
	var offset int64
	for _, name := range names {
		t := state[name]
		size := int64(len(t.Data))
		header[name] = safeTensorHeader{
			DType:       t.DType,
			Shape:       t.Shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	f, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := f.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := f.Write(state[name].Data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return f.Close()
}
