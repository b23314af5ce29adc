package hclplan

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks of one plan file.
type fileRoot struct {
	Run   *runBlock    `hcl:"run,block"`
	Loops []*loopBlock `hcl:"loop,block"`
}

type runBlock struct {
	Label    *string `hcl:"label,optional"`
	Location *string `hcl:"location,optional"`
}

type loopBlock struct {
	Quantity  string         `hcl:"quantity,label"`
	Values    hcl.Expression `hcl:"values"`
	Delay     hcl.Expression `hcl:"delay,optional"`
	Each      hcl.Expression `hcl:"each,optional"`
	Loops     []*loopBlock   `hcl:"loop,block"`
	DeclRange hcl.Range      `hcl:",def_range"`
}
