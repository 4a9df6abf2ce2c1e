package artifacts

import "github.com/spf13/afero"

// TypeTag identifies one supported artifact kind.
type TypeTag string

const (
	TagText                TypeTag = "text"
	TagPath                TypeTag = "path"
	TagDataFrame           TypeTag = "dataframe"
	TagBooster             TypeTag = "boosted-tree"
	TagPretrainedModel     TypeTag = "transformers-model"
	TagPretrainedTokenizer TypeTag = "transformers-tokenizer"
	TagNeuralNetwork       TypeTag = "neural-network"
	TagEstimator           TypeTag = "estimator"
)

// DataTags are accepted for dataset and result entries.
var DataTags = []TypeTag{TagText, TagPath, TagDataFrame}

// ModelTags are accepted for model entries, most specific first.
var ModelTags = []TypeTag{
	TagBooster,
	TagPretrainedModel,
	TagPretrainedTokenizer,
	TagNeuralNetwork,
	TagEstimator,
}

// Serializer writes value to dst on fs.
type Serializer func(fs afero.Fs, value any, dst string) error

// Path is a file or directory that is copied as is.
type Path string

// Table is a tabular value. The first record is the header row.
// gota's dataframe.DataFrame satisfies it.
type Table interface {
	Records() [][]string
}

// Booster is a gradient boosted tree model with its own export routine.
type Booster interface {
	SaveModel(path string) error
}

// PretrainedModel is a transformer model that saves itself to a directory.
type PretrainedModel interface {
	SavePretrained(dir string) error
	Config() map[string]any
}

// PretrainedTokenizer is a tokenizer that saves itself to a directory.
type PretrainedTokenizer interface {
	SavePretrained(dir string) error
	Vocab() map[string]int
}

// NeuralNetwork is a module whose parameters and buffers can be exported
// without its architecture.
type NeuralNetwork interface {
	// ToHost moves all parameters and buffers to host memory.
	ToHost() error
	StateDict() map[string]Tensor
}

// Estimator is any fitted model without a standard save routine. It is
// serialized whole.
type Estimator interface {
	GetParams() map[string]any
}

// Tensor is a raw, host resident tensor of a state dict.
type Tensor struct {
	DType string
	Shape []int64
	Data  []byte
}
