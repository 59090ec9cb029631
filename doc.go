// Package scitune tunes regression models on tabular data with
// cross-validated hyperparameter search.
//
// A run splits the dataset into training and test partitions, assigns the
// training rows to v folds, draws candidate configurations from a model
// family's hyperparameter space with a space-filling design, and scores every
// candidate on every fold. Preprocessing is refitted on each fold's training
// rows, so holdout rows never influence the statistics used to transform
// them. The best candidate by the selection metric is refitted on the full
// training partition and evaluated once on the test partition.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/scitune/adapter"
//	    "github.com/YuminosukeSato/scitune/dataset"
//	    "github.com/YuminosukeSato/scitune/preprocessing"
//	    "github.com/YuminosukeSato/scitune/search"
//	)
//
//	func main() {
//	    ds, err := dataset.Synthetic(500, 1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    res, err := search.Run(context.Background(), ds, adapter.NewBoostedTrees(),
//	        search.WithFoldCount(5),
//	        search.WithPipeline(preprocessing.Default("gauge_id")),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Println(res.Selected.Candidate.ID, res.Selected.Candidate.Config)
//	    fmt.Println("test rmse:", res.TestMetrics["rmse"])
//	}
//
// # Packages
//
//   - dataset: rows of mixed numeric and categorical values, CSV loading,
//     stratified splits and fold assignment
//   - preprocessing: the per-fold recipe (drop, one-hot, impute, standardize)
//   - hyperparam: parameter spaces and maximin Latin hypercube candidates
//   - adapter: model families (linear, boosted_trees, random_forest) and their
//     registry
//   - metrics: rmse, r_squared, mae and the metric registry
//   - search: fold evaluation, aggregation, ranking and the final fit
//   - linear, sklearn/tree, sklearn/ensemble: the estimators behind the families
//   - core/model, core/parallel: estimator interfaces and the worker pool
//   - pkg/errors, pkg/log: error types, warnings and structured logging
//
// The scitune command in cmd/scitune runs a search from the command line.
package scitune
