// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/retina/pkg/embeddings"
	"github.com/papercomputeco/retina/pkg/embeddings/colqwen"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

func NewGenerator(o *NewGeneratorOpts) (embeddings.Generator, error) {
	switch o.ProviderType {
	case "colqwen":
		return colqwen.NewGenerator(colqwen.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
