package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"

	"gopheros/kernel/boot"
	"gopheros/kernel/mm"
)

// RegionSpec is a physical memory region given as "BASE:SIZE" on the
// command line. Both numbers accept a 0x prefix.
type RegionSpec struct {
	Base uint64 `mapstructure:"base"`
	Size uint64 `mapstructure:"size"`
}

// ParseRegionSpec parses "BASE:SIZE". An empty string yields the zero
// region.
func ParseRegionSpec(s string) (RegionSpec, error) {
	var spec RegionSpec

	s = strings.TrimSpace(s)
	if s == "" {
		return spec, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return spec, fmt.Errorf("invalid region %q: expected BASE:SIZE", s)
	}

	var (
		errs error
		err  error
	)

	if spec.Base, err = strconv.ParseUint(parts[0], 0, 64); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid region base %q", parts[0]))
	}
	if spec.Size, err = strconv.ParseUint(parts[1], 0, 64); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid region size %q", parts[1]))
	} else if spec.Size == 0 {
		errs = multierror.Append(errs, fmt.Errorf("region size must be greater than zero"))
	}

	if errs != nil {
		return RegionSpec{}, errs
	}

	return spec, nil
}

// IsZero reports whether no region was configured.
func (r RegionSpec) IsZero() bool {
	return r.Size == 0
}

// Boot converts r into the region descriptor handed to the ACPI locator.
func (r RegionSpec) Boot() *boot.Region {
	if r.IsZero() {
		return nil
	}

	return &boot.Region{Base: mm.PhysicalAddress(r.Base), Size: mm.Size(r.Size)}
}

func (r RegionSpec) String() string {
	if r.IsZero() {
		return ""
	}

	return fmt.Sprintf("0x%x:0x%x", r.Base, r.Size)
}

// regionValue adapts RegionSpec to pflag so malformed regions are rejected
// while the command line is parsed.
type regionValue RegionSpec

var _ pflag.Value = (*regionValue)(nil)

func (v *regionValue) String() string {
	return RegionSpec(*v).String()
}

func (v *regionValue) Set(s string) error {
	spec, err := ParseRegionSpec(s)
	if err != nil {
		return err
	}

	*v = regionValue(spec)
	return nil
}

func (*regionValue) Type() string {
	return "region"
}
