// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
)

// EmbeddingConfig contains hyperparameters for the two-tower embedding model.
type EmbeddingConfig struct {
	// NumFactors is the dimension of the latent embedding vectors.
	// Default: 32.
	NumFactors int

	// LearningRate is the Adam step size.
	// Default: 0.001.
	LearningRate float64

	// NumEpochs is the number of passes over the training split.
	// Default: 20.
	NumEpochs int

	// BatchSize is the number of examples per gradient step.
	// Default: 64.
	BatchSize int

	// ValidationFraction is the share of examples held out for
	// validation loss reporting. The split happens once, after a
	// seeded shuffle, so repeated runs hold out the same examples.
	// Default: 0.1.
	ValidationFraction float64

	// Beta1 is the Adam first-moment decay rate.
	// Default: 0.9.
	Beta1 float64

	// Beta2 is the Adam second-moment decay rate.
	// Default: 0.999.
	Beta2 float64

	// Epsilon is the Adam denominator stabilizer.
	// Default: 1e-8.
	Epsilon float64

	// Seed for reproducible initialization and shuffling.
	// If 0, uses a default seed.
	Seed int64
}

// DefaultEmbeddingConfig returns default embedding model configuration.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		NumFactors:         32,
		LearningRate:       0.001,
		NumEpochs:          20,
		BatchSize:          64,
		ValidationFraction: 0.1,
		Beta1:              0.9,
		Beta2:              0.999,
		Epsilon:            1e-8,
		Seed:               42,
	}
}

// EmbeddingWeights is the serializable state of a trained model.
// It carries only what scoring needs; optimizer state is never persisted.
type EmbeddingWeights struct {
	NumFactors     int
	UserFactors    [][]float64
	ProductFactors [][]float64
}

// EmbeddingModel learns dense user and product vectors from weighted
// implicit feedback.
//
// The model is a two-tower matrix factorization:
// score(u,p) = user_factors[u] dot product_factors[p].
// Training minimizes mean squared error between the predicted score and
// the action score of each interaction, using minibatch Adam
// (Kingma, Ba, "Adam: A Method for Stochastic Optimization", 2015).
//
// An EmbeddingModel is not safe for concurrent use during Fit. Once fitted
// (or loaded from weights) the scoring methods are read-only and may be
// called concurrently.
type EmbeddingModel struct {
	config EmbeddingConfig
	logger zerolog.Logger

	// userFactors is the user embedding matrix (numUsers x NumFactors).
	userFactors [][]float64

	// productFactors is the product embedding matrix (numProducts x NumFactors).
	productFactors [][]float64

	numUsers    int
	numProducts int

	// Adam moment estimates, allocated for the duration of Fit and
	// released when it returns.
	mUser    [][]float64
	vUser    [][]float64
	mProduct [][]float64
	vProduct [][]float64
}

// NewEmbeddingModel creates a new embedding model with the given
// configuration. Zero or negative hyperparameters fall back to defaults.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func NewEmbeddingModel(cfg EmbeddingConfig, logger zerolog.Logger) *EmbeddingModel {
	def := DefaultEmbeddingConfig()
	if cfg.NumFactors <= 0 {
		cfg.NumFactors = def.NumFactors
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.NumEpochs <= 0 {
		cfg.NumEpochs = def.NumEpochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.ValidationFraction <= 0 || cfg.ValidationFraction >= 1 {
		cfg.ValidationFraction = def.ValidationFraction
	}
	if cfg.Beta1 <= 0 {
		cfg.Beta1 = def.Beta1
	}
	if cfg.Beta2 <= 0 {
		cfg.Beta2 = def.Beta2
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}

	return &EmbeddingModel{
		config: cfg,
		logger: logger.With().Str("component", "embedding").Logger(),
	}
}

// EmbeddingModelFromWeights reconstructs a scoring-only model from
// persisted weights. The weight matrices are validated for shape so a
// corrupt artifact cannot produce out-of-range panics later.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func EmbeddingModelFromWeights(w *EmbeddingWeights, logger zerolog.Logger) (*EmbeddingModel, error) {
	if w == nil {
		return nil, errors.New("nil embedding weights")
	}
	if w.NumFactors <= 0 {
		return nil, fmt.Errorf("invalid factor dimension %d", w.NumFactors)
	}
	for i, row := range w.UserFactors {
		if len(row) != w.NumFactors {
			return nil, fmt.Errorf("user row %d has %d factors, want %d", i, len(row), w.NumFactors)
		}
	}
	for i, row := range w.ProductFactors {
		if len(row) != w.NumFactors {
			return nil, fmt.Errorf("product row %d has %d factors, want %d", i, len(row), w.NumFactors)
		}
	}

	cfg := DefaultEmbeddingConfig()
	cfg.NumFactors = w.NumFactors

	m := NewEmbeddingModel(cfg, logger)
	m.userFactors = w.UserFactors
	m.productFactors = w.ProductFactors
	m.numUsers = len(w.UserFactors)
	m.numProducts = len(w.ProductFactors)
	return m, nil
}

// Weights returns the persistable state of the model.
func (m *EmbeddingModel) Weights() *EmbeddingWeights {
	return &EmbeddingWeights{
		NumFactors:     m.config.NumFactors,
		UserFactors:    m.userFactors,
		ProductFactors: m.productFactors,
	}
}

// NumUsers returns the number of user rows in the model.
func (m *EmbeddingModel) NumUsers() int { return m.numUsers }

// NumProducts returns the number of product rows in the model.
func (m *EmbeddingModel) NumProducts() int { return m.numProducts }

// Fit trains the model on the dataset using minibatch Adam.
//
// The dataset is shuffled once with the configured seed, then split into
// a training portion and a validation tail. The training portion is
// reshuffled every epoch; the validation tail is only ever scored, never
// trained on. Datasets too small to yield a non-empty validation tail
// are trained on in full.
//
//nolint:gocyclo // ML training loops are inherently sequential and branchy
func (m *EmbeddingModel) Fit(ctx context.Context, ds *Dataset) error {
	if ds == nil || ds.Empty() {
		return errors.New("empty dataset")
	}
	if ds.NumUsers <= 0 || ds.NumProducts <= 0 {
		return fmt.Errorf("invalid dataset dimensions (%d users, %d products)", ds.NumUsers, ds.NumProducts)
	}

	m.numUsers = ds.NumUsers
	m.numProducts = ds.NumProducts
	numFactors := m.config.NumFactors

	// Initialize factor matrices with small random values.
	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(m.config.Seed))

	m.userFactors = randomMatrix(rng, m.numUsers, numFactors)
	m.productFactors = randomMatrix(rng, m.numProducts, numFactors)

	m.mUser = zeroMatrix(m.numUsers, numFactors)
	m.vUser = zeroMatrix(m.numUsers, numFactors)
	m.mProduct = zeroMatrix(m.numProducts, numFactors)
	m.vProduct = zeroMatrix(m.numProducts, numFactors)
	defer func() {
		// Release optimizer state; only the factor matrices outlive Fit.
		m.mUser = nil
		m.vUser = nil
		m.mProduct = nil
		m.vProduct = nil
	}()

	n := ds.Len()
	order := rng.Perm(n)

	valN := int(float64(n) * m.config.ValidationFraction)
	if valN >= n {
		valN = 0
	}
	trainIdx := order[:n-valN]
	valIdx := order[n-valN:]

	batchSize := m.config.BatchSize
	step := 0

	for epoch := 0; epoch < m.config.NumEpochs; epoch++ {
		if contextCancelled(ctx) {
			return ctx.Err()
		}

		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		var sumSq float64
		for start := 0; start < len(trainIdx); start += batchSize {
			end := start + batchSize
			if end > len(trainIdx) {
				end = len(trainIdx)
			}
			step++
			sumSq += m.trainBatch(ds, trainIdx[start:end], step)
		}

		trainLoss := sumSq / float64(len(trainIdx))
		ev := m.logger.Debug().
			Int("epoch", epoch+1).
			Float64("train_loss", trainLoss)
		if len(valIdx) > 0 {
			ev = ev.Float64("val_loss", m.meanSquaredError(ds, valIdx))
		}
		ev.Msg("epoch complete")
	}

	return nil
}

// trainBatch accumulates MSE gradients over one minibatch, then applies a
// single Adam update to every row the batch touched. Returns the batch's
// summed squared error, measured before the update.
func (m *EmbeddingModel) trainBatch(ds *Dataset, batch []int, step int) float64 {
	numFactors := m.config.NumFactors
	gradU := make(map[int][]float64)
	gradP := make(map[int][]float64)

	var sumSq float64
	scale := 2.0 / float64(len(batch))
	for _, i := range batch {
		u := ds.UserIndices[i]
		p := ds.ProductIndices[i]
		uVec := m.userFactors[u]
		pVec := m.productFactors[p]

		var pred float64
		for f := 0; f < numFactors; f++ {
			pred += uVec[f] * pVec[f]
		}
		errVal := pred - ds.Ratings[i]
		sumSq += errVal * errVal

		gu, ok := gradU[u]
		if !ok {
			gu = make([]float64, numFactors)
			gradU[u] = gu
		}
		gp, ok := gradP[p]
		if !ok {
			gp = make([]float64, numFactors)
			gradP[p] = gp
		}
		for f := 0; f < numFactors; f++ {
			gu[f] += scale * errVal * pVec[f]
			gp[f] += scale * errVal * uVec[f]
		}
	}

	for u, grad := range gradU {
		m.adamUpdate(m.userFactors[u], m.mUser[u], m.vUser[u], grad, step)
	}
	for p, grad := range gradP {
		m.adamUpdate(m.productFactors[p], m.mProduct[p], m.vProduct[p], grad, step)
	}

	return sumSq
}

// adamUpdate applies one bias-corrected Adam step to a factor row.
func (m *EmbeddingModel) adamUpdate(row, mRow, vRow, grad []float64, step int) {
	lr := m.config.LearningRate
	b1 := m.config.Beta1
	b2 := m.config.Beta2
	eps := m.config.Epsilon

	c1 := 1 - math.Pow(b1, float64(step))
	c2 := 1 - math.Pow(b2, float64(step))

	for f := range row {
		g := grad[f]
		mRow[f] = b1*mRow[f] + (1-b1)*g
		vRow[f] = b2*vRow[f] + (1-b2)*g*g
		mHat := mRow[f] / c1
		vHat := vRow[f] / c2
		row[f] -= lr * mHat / (math.Sqrt(vHat) + eps)
	}
}

// meanSquaredError computes the MSE over the given dataset rows.
func (m *EmbeddingModel) meanSquaredError(ds *Dataset, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sumSq float64
	for _, i := range idx {
		errVal := m.Score(ds.UserIndices[i], ds.ProductIndices[i]) - ds.Ratings[i]
		sumSq += errVal * errVal
	}
	return sumSq / float64(len(idx))
}

// Score returns the predicted affinity of a user index for a product
// index. Out-of-range indices score zero.
func (m *EmbeddingModel) Score(userIdx, productIdx int) float64 {
	if userIdx < 0 || userIdx >= m.numUsers || productIdx < 0 || productIdx >= m.numProducts {
		return 0
	}
	uVec := m.userFactors[userIdx]
	pVec := m.productFactors[productIdx]
	var score float64
	for f := range uVec {
		score += uVec[f] * pVec[f]
	}
	return score
}

// ScoreAll returns the user's predicted affinity for every product, in
// product index order. Returns nil for an out-of-range user index.
func (m *EmbeddingModel) ScoreAll(userIdx int) []float64 {
	if userIdx < 0 || userIdx >= m.numUsers {
		return nil
	}
	uVec := m.userFactors[userIdx]
	scores := make([]float64, m.numProducts)
	for p, pVec := range m.productFactors {
		var score float64
		for f := range uVec {
			score += uVec[f] * pVec[f]
		}
		scores[p] = score
	}
	return scores
}

// randomMatrix allocates a rows x cols matrix of small random values.
func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	mat := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		mat[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			mat[r][c] = (rng.Float64() - 0.5) * 0.01
		}
	}
	return mat
}

// zeroMatrix allocates a rows x cols matrix of zeros.
func zeroMatrix(rows, cols int) [][]float64 {
	mat := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		mat[r] = make([]float64, cols)
	}
	return mat
}

// contextCancelled checks if the context has been canceled.
func contextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
