// Package config defines the format-agnostic sweep plan model and the Loader
// interface that format-specific readers implement.
//
// A Model is the single input the application turns into a loop.Plan. It
// holds only plain values and station references ("dci.A.temperature"), so
// it can be produced from HCL, tests, or any other source without depending
// on the instrument layer. The HCL implementation lives in the hclplan
// package.
package config
