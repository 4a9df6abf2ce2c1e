package artifacts

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// hfModel is both a transformer model and a neural network.
type hfModel struct {
	saved  string
	onHost bool
}

func (m *hfModel) SavePretrained(dir string) error {
	m.saved = dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"model_type":"t5"}`), 0o644)
}

func (m *hfModel) Config() map[string]any { return map[string]any{"model_type": "t5"} }

func (m *hfModel) ToHost() error {
	m.onHost = true
	return nil
}

func (m *hfModel) StateDict() map[string]Tensor {
	return map[string]Tensor{
		"linear.weight": {DType: "F32", Shape: []int64{2}, Data: []byte{0, 0, 128, 63, 0, 0, 0, 64}},
		"linear.bias":   {DType: "F32", Shape: []int64{1}, Data: []byte{0, 0, 0, 0}},
	}
}

type brokenBooster struct{}

func (brokenBooster) SaveModel(path string) error {
	if err := os.WriteFile(path, []byte("half a model"), 0o644); err != nil {
		return err
	}
	return errors.New("disk full")
}

type linearRegression struct {
	Coef      []float64
	Intercept float64
}

func (l linearRegression) GetParams() map[string]any { return map[string]any{"fit_intercept": true} }

func TestNewRegistryRejectsInvalidKinds(t *testing.T) {
	text := reflect.TypeOf("")
	tests := []struct {
		name  string
		kinds []Kind
	}{
		{"empty tag", []Kind{{Tag: "", Type: text, Serializer: dumpPlainText}}},
		{"nil type", []Kind{{Tag: TagText, Serializer: dumpPlainText}}},
		{"nil serializer", []Kind{{Tag: TagText, Type: text}}},
		{"duplicate", []Kind{
			{Tag: TagText, Type: text, Serializer: dumpPlainText},
			{Tag: TagText, Type: text, Serializer: dumpPlainText},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.kinds...)
			require.ErrorIs(t, err, ErrInvalidKind)
		})
	}
}

func TestRegistryResolveUnknownTag(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.ResolveType("xgboost")
	require.ErrorIs(t, err, ErrUnknownTag)
	_, err = r.SerializerFor("xgboost")
	require.ErrorIs(t, err, ErrUnknownTag)

	typ, err := r.ResolveType(TagDataFrame)
	require.NoError(t, err)
	assert.Equal(t, reflect.Interface, typ.Kind())
}

func TestDumpFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(afero.NewOsFs(), nil)

	model := &hfModel{}
	dst := filepath.Join(dir, "t5_model")
	require.NoError(t, d.Dump(model, dst, []TypeTag{TagPretrainedModel, TagNeuralNetwork}))
	assert.False(t, model.onHost, "state dict serializer must not run")
	assert.FileExists(t, filepath.Join(dst, "config.json"))

	model = &hfModel{}
	dst = filepath.Join(dir, "t5_state")
	require.NoError(t, d.Dump(model, dst, []TypeTag{TagNeuralNetwork, TagPretrainedModel}))
	assert.True(t, model.onHost)
	assert.Empty(t, model.saved)
}

func TestDumpUnsupportedType(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDumper(fs, nil)

	err := d.Dump(42, "/stage/dataset/n", DataTags)
	require.ErrorIs(t, err, ErrUnsupportedType)

	var typeErr *UnsupportedTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "int", typeErr.Type)
	assert.Equal(t, DataTags, typeErr.Tags)
	assert.Contains(t, err.Error(), "text, path, dataframe")

	exists, err := afero.Exists(fs, "/stage/dataset/n")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDumpPathIsNotText(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDumper(fs, nil)

	err := d.Dump("/data/train.csv", "/stage/a", []TypeTag{TagPath})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDumpFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(afero.NewOsFs(), nil)

	err := d.Dump(brokenBooster{}, filepath.Join(dir, "lgb.txt"), ModelTags)
	require.EqualError(t, err, "disk full")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDumpSelfSavingModelsNeedOsFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDumper(fs, nil)

	for name, model := range map[string]any{"booster": brokenBooster{}, "pretrained": &hfModel{}} {
		t.Run(name, func(t *testing.T) {
			dst := "/stage/model/" + name
			err := d.Dump(model, dst, ModelTags)
			require.ErrorIs(t, err, ErrNeedsOSFs)

			matches, err := afero.Glob(fs, "/stage/model/*")
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestDumpDestinationExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/stage/note.txt", []byte("old"), 0o644))
	d := NewDumper(fs, nil)

	err := d.Dump("new", "/stage/note.txt", DataTags)
	require.ErrorIs(t, err, ErrDestinationExists)

	got, err := afero.ReadFile(fs, "/stage/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestDumpPlainText(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/stage", 0o755))
	d := NewDumper(fs, nil)

	require.NoError(t, d.Dump("hello\nworld", "/stage/readme.txt", DataTags))

	got, err := afero.ReadFile(fs, "/stage/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", string(got))
}

func TestDumpDataFrameRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/stage", 0o755))
	d := NewDumper(fs, nil)

	df := dataframe.LoadRecords([][]string{
		{"A", "B"},
		{"1", "x"},
		{"2", "y, z"},
		{"3", "w"},
	})
	require.NoError(t, df.Err)
	require.NoError(t, d.Dump(df, "/stage/train.csv", DataTags))

	raw, err := afero.ReadFile(fs, "/stage/train.csv")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("\ufeff")), "missing byte order mark")

	body := bytes.TrimPrefix(raw, []byte("\ufeff"))
	assert.Equal(t, "A,B\n1,x\n2,\"y, z\"\n3,w\n", string(body))

	back := dataframe.ReadCSV(bytes.NewReader(body))
	require.NoError(t, back.Err)
	assert.Equal(t, []string{"A", "B"}, back.Names())
	assert.Equal(t, df.Records(), back.Records())
}

func TestDumpPathCopyIsIdempotent(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "images", "val"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "labels.csv"), []byte("id,label\n1,cat\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "images", "val", "0001.bin"), []byte{1, 2, 3}, 0o644))

	fs := afero.NewOsFs()
	d := NewDumper(fs, nil)
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	require.NoError(t, d.Dump(Path(src), first, DataTags))
	require.NoError(t, d.Dump(Path(src), second, DataTags))

	a, err := Summarize(fs, first)
	require.NoError(t, err)
	b, err := Summarize(fs, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"images/val/0001.bin (3 bytes)", "labels.csv (15 bytes)"}, a)
	assert.Equal(t, a, b)

	for _, rel := range []string{"labels.csv", filepath.Join("images", "val", "0001.bin")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		for _, dst := range []string{first, second} {
			got, err := os.ReadFile(filepath.Join(dst, rel))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestDumpPathSingleFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/test.jsonl", []byte(`{"q":1}`), 0o644))
	require.NoError(t, fs.MkdirAll("/stage", 0o755))
	d := NewDumper(fs, nil)

	require.NoError(t, d.Dump(Path("/data/test.jsonl"), "/stage/test.jsonl", DataTags))

	got, err := afero.ReadFile(fs, "/stage/test.jsonl")
	require.NoError(t, err)
	assert.Equal(t, `{"q":1}`, string(got))
}

func TestDumpStateDict(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/stage", 0o755))
	d := NewDumper(fs, nil)

	model := &hfModel{}
	require.NoError(t, d.Dump(model, "/stage/model.safetensors", []TypeTag{TagNeuralNetwork}))
	assert.True(t, model.onHost)

	raw, err := afero.ReadFile(fs, "/stage/model.safetensors")
	require.NoError(t, err)
	size := binary.LittleEndian.Uint64(raw[:8])

	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw[8:8+size], &header))
	assert.Contains(t, header, "__metadata__")

	var bias, weight safeTensorHeader
	require.NoError(t, json.Unmarshal(header["linear.bias"], &bias))
	require.NoError(t, json.Unmarshal(header["linear.weight"], &weight))
	assert.Equal(t, [2]int64{0, 4}, bias.DataOffsets)
	assert.Equal(t, [2]int64{4, 12}, weight.DataOffsets)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 128, 63, 0, 0, 0, 64}, raw[8+size:])
}

func TestDumpEstimator(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/stage", 0o755))
	d := NewDumper(fs, nil)

	model := linearRegression{Coef: []float64{0.5, -1.25}, Intercept: 3}
	require.NoError(t, d.Dump(model, "/stage/linreg.msgpack", ModelTags))

	raw, err := afero.ReadFile(fs, "/stage/linreg.msgpack")
	require.NoError(t, err)
	var back linearRegression
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.Equal(t, model, back)
}
