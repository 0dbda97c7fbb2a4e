// Package spamclf implements the local classification pipeline: TF-IDF feature extraction with a pre-fitted
// vocabulary and a pre-trained multinomial naive Bayes classifier, both loaded once from JSON artifacts.
package spamclf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/umputun/spamdash/lib/msgcheck"
)

// Model is a loaded pair of vectorizer and classifier, immutable after loading
type Model struct {
	Vectorizer *Vectorizer
	Classifier *Classifier
}

// vocabArtifact is the json layout of the vocabulary artifact
type vocabArtifact struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Norm        *Norm          `json:"norm"` // l2 if not set
	SublinearTF bool           `json:"sublinear_tf"`
}

// modelArtifact is the json layout of the classifier artifact
type modelArtifact struct {
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// LoadModelFiles loads vocabulary and classifier artifacts from files
func LoadModelFiles(vocabFile, modelFile string) (*Model, error) {
	errs := new(multierror.Error)
	vocabFh, err := os.Open(vocabFile) //nolint:gosec // path is controlled by the app
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't open vocabulary %s: %w", vocabFile, err))
	} else {
		defer vocabFh.Close()
	}
	modelFh, err := os.Open(modelFile) //nolint:gosec // path is controlled by the app
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't open model %s: %w", modelFile, err))
	} else {
		defer modelFh.Close()
	}
	if errs.ErrorOrNil() != nil {
		return nil, fmt.Errorf("%w: %w", msgcheck.ErrModelUnavailable, errs)
	}
	return LoadModel(vocabFh, modelFh)
}

// LoadModel reads vocabulary and classifier artifacts, validates them and their consistency.
// All problems found are reported together, the returned error wraps msgcheck.ErrModelUnavailable.
func LoadModel(vocabReader, modelReader io.Reader) (*Model, error) {
	errs := new(multierror.Error)

	var va vocabArtifact
	if err := json.NewDecoder(vocabReader).Decode(&va); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't decode vocabulary: %w", err))
	}
	var ma modelArtifact
	if err := json.NewDecoder(modelReader).Decode(&ma); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't decode model: %w", err))
	}
	if errs.ErrorOrNil() != nil {
		return nil, fmt.Errorf("%w: %w", msgcheck.ErrModelUnavailable, errs)
	}

	norm := NormL2
	if va.Norm != nil {
		norm = *va.Norm
	}
	vectorizer, err := NewVectorizer(va.Vocabulary, va.IDF, norm, va.SublinearTF)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid vocabulary: %w", err))
	}

	classes := make([]msgcheck.Label, 0, len(ma.Classes))
	for _, c := range ma.Classes {
		label, lerr := msgcheck.ParseLabel(c)
		if lerr != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid model class: %w", lerr))
			continue
		}
		classes = append(classes, label)
	}
	classifier, err := NewClassifier(classes, ma.ClassLogPrior, ma.FeatureLogProb)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid model: %w", err))
	}

	if vectorizer != nil && classifier != nil && vectorizer.Dim() != classifier.Features() {
		errs = multierror.Append(errs, fmt.Errorf("vocabulary size %d doesn't match model features %d",
			vectorizer.Dim(), classifier.Features()))
	}

	if errs.ErrorOrNil() != nil {
		return nil, fmt.Errorf("%w: %w", msgcheck.ErrModelUnavailable, errs)
	}
	return &Model{Vectorizer: vectorizer, Classifier: classifier}, nil
}
