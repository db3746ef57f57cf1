// Package taxifare predicts New York taxi fares with gradient boosted
// regression trees.
//
// The work is split across small packages:
//
//   - dataset: trip records, CSV sources and a synthetic generator
//   - preprocessing: the fitted feature encoder (one-hot categories, raw numerics)
//   - sklearn/tree, sklearn/ensemble: regression trees and the boosting trainer
//   - linear: a ridge regression baseline
//   - pipeline: Train, Apply, Evaluate and persistence of fitted pipelines
//   - metrics, report: regression metrics, console banners and plots
//
// # Quick Start
//
//	records, err := dataset.NewCSVSource("Data/taxi-fare-train.csv").Records()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := pipeline.Train(records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fare, err := p.Apply(dataset.TripRecord{
//	    VendorID: "VTS", RateCode: "1", PassengerCount: 1,
//	    TripTime: 1140, TripDistance: 3.75, PaymentType: "CRD",
//	})
//
// The taxifare command wraps the same steps and adds an HTTP scoring server
// and a bbolt model registry.
package taxifare
