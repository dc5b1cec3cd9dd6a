package installer

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/repair"
	"github.com/arthur-debert/kegs/pkg/types"
)

// ReceiptFile is written at the top of every installed keg
const ReceiptFile = ".kegs-receipt.json"

// Receipt records how a keg was installed
type Receipt struct {
	Name                string             `json:"name"`
	Version             string             `json:"version"`
	Revision            int                `json:"revision,omitempty"`
	BottleTag           string             `json:"bottle_tag,omitempty"`
	BottleDigest        string             `json:"bottle_digest,omitempty"`
	InstalledAt         time.Time          `json:"installed_at"`
	RuntimeDependencies []types.Dependency `json:"runtime_dependencies,omitempty"`
	Commands            []string           `json:"commands,omitempty"`
	// Links are relative to the root
	Links  []string      `json:"links,omitempty"`
	Repair RepairReceipt `json:"repair"`
}

// RepairReceipt is the repair summary of the install
type RepairReceipt struct {
	Candidates     int      `json:"candidates"`
	NeedingRepair  int      `json:"needing_repair"`
	Repaired       int      `json:"repaired"`
	PathsRewritten int      `json:"paths_rewritten"`
	SignFailures   int      `json:"sign_failures"`
	Failures       []string `json:"failures,omitempty"`
}

func repairReceipt(keg string, sum repair.Summary) RepairReceipt {
	r := RepairReceipt{
		Candidates:     sum.Candidates,
		NeedingRepair:  sum.NeedingRepair,
		Repaired:       sum.Repaired,
		PathsRewritten: sum.PathsRewritten,
		SignFailures:   sum.SignFailures,
	}
	for _, f := range sum.Failures {
		rel, err := filepath.Rel(keg, f.Path)
		if err != nil {
			rel = f.Path
		}
		r.Failures = append(r.Failures, rel+": "+f.Reason)
	}
	return r
}

// ReadReceipt loads the receipt of the keg at kegDir
func ReadReceipt(fs types.FS, kegDir string) (*Receipt, error) {
	path := filepath.Join(kegDir, ReceiptFile)
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.FromFS(err, path)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "invalid receipt %s", path).WithDetail("path", path)
	}
	return &r, nil
}

func writeReceipt(fs types.FS, kegDir string, r *Receipt) error {
	path := filepath.Join(kegDir, ReceiptFile)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode receipt")
	}
	if err := fs.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.FromFS(err, path)
	}
	return nil
}
