package compiler

// DefaultCatalog returns the catalog used when the configuration lists no toggles.
func DefaultCatalog(b Backend) Catalog {
	switch b {
	case BackendGCC:
		return Catalog{Toggles: []Toggle{
			{Name: "s"},
			{Name: "O", Values: []string{"2", "3"}},
		}}
	case BackendClang:
		return Catalog{Toggles: []Toggle{
			{Name: "s"},
			{Name: "sub", Kind: TogglePass, Params: []Param{
				{Key: "loop", Values: []string{"1", "2", "3"}},
			}},
			{Name: "fla", Kind: TogglePass},
			{Name: "split", Kind: TogglePass, Params: []Param{
				{Key: "num", Values: []string{"1", "2", "3", "4", "5"}},
			}},
			{Name: "bcf", Kind: TogglePass, Params: []Param{
				{Key: "loop", Values: []string{"1", "2", "3"}},
				{Key: "prob", Values: []string{"10", "30", "50", "70", "90"}},
			}},
		}}
	default:
		return Catalog{}
	}
}
