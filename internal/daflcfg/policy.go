package daflcfg

import (
	"fmt"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// policyNames maps the config file's string spelling of each admission
// policy (spec.md section 4.E) to its scheduler.Policy value.
var policyNames = map[string]scheduler.Policy{
	"default":                     scheduler.PolicyDefault,
	"unique_val":                  scheduler.PolicyUniqueVal,
	"unique_val_per_path":         scheduler.PolicyUniqueValPerPath,
	"all":                         scheduler.PolicyAll,
	"none":                        scheduler.PolicyNone,
	"unique_val_per_path_in_ver":  scheduler.PolicyUniqueValPerPathInVer,
	"unique_val_per_path_in_ver_plus_def": scheduler.PolicyUniqueValPerPathInVerPlusDef,
}

func parsePolicy(name string) (scheduler.Policy, error) {
	policy, ok := policyNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}

	return policy, nil
}
