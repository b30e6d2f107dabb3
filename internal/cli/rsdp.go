package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"gopheros/device/acpi"
	"gopheros/device/acpi/table"
	"gopheros/kernel/mm"
	"gopheros/kernel/mm/vmm"
)

// Output formats understood by the rsdp command.
const (
	outputText = "text"
	outputYAML = "yaml"
	outputDump = "dump"
)

// rsdpReport is the yaml representation of a located RSDP.
type rsdpReport struct {
	Signature   string `yaml:"signature"`
	OEMID       string `yaml:"oemID"`
	Revision    uint8  `yaml:"revision"`
	RSDTAddress string `yaml:"rsdtAddress"`
	XSDTAddress string `yaml:"xsdtAddress,omitempty"`
	Length      uint32 `yaml:"length,omitempty"`
	Table       string `yaml:"table"`
	SDTAddress  string `yaml:"sdtAddress"`
}

func newRSDPReport(desc table.RSDPDescriptor) rsdpReport {
	r := rsdpReport{
		Signature:   string(desc.Signature[:]),
		OEMID:       string(desc.OEMID[:]),
		Revision:    desc.Revision,
		RSDTAddress: fmt.Sprintf("0x%x", desc.RSDTAddr),
		Table:       "RSDT",
		SDTAddress:  fmt.Sprintf("0x%x", desc.SDTAddress()),
	}

	if desc.IsACPI2() {
		r.XSDTAddress = fmt.Sprintf("0x%x", desc.XSDTAddr)
		r.Length = desc.Length
		r.Table = "XSDT"
	}

	return r
}

func NewRSDPCmd(root *cobra.Command) *cobra.Command {
	var region regionValue

	c := &cobra.Command{
		Use:   "rsdp",
		Short: "Locate the ACPI RSDP in physical memory images",
		Long: `Load one or more physical memory images and search them for the ACPI
root system description pointer.

Images are given as PATH or PATH@BASE where BASE is the physical address of
the first byte of the image (0 if omitted). Without --region the BIOS area
[0xe0000, 0xfffff] is scanned. With --region BASE:SIZE the region is treated
as a bootloader-supplied list of length-prefixed RSDP copies.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}

			if len(cfg.RSDP.Images) == 0 {
				return NewExitError("at least one memory image is required", ExitCodeBadConfig)
			}

			switch cfg.RSDP.Output {
			case outputText, outputYAML, outputDump:
			default:
				return NewExitError(fmt.Sprintf("unknown output format %q", cfg.RSDP.Output), ExitCodeBadConfig)
			}

			cmd.SilenceUsage = true

			phys, err := loadImages(cfg)
			if err != nil {
				return err
			}

			as := vmm.NewEmulatedAddressSpace(phys)
			suppliedRegion := cfg.RSDP.Region.Boot()
			if suppliedRegion != nil {
				if err := checkRegionSize(cfg.RSDP.Region, phys); err != nil {
					return err
				}
				if err := mapSuppliedRegion(as, cfg.RSDP.Region); err != nil {
					return err
				}
				cfg.Logger.Infof("searching supplied region %s", cfg.RSDP.Region)
			} else {
				cfg.Logger.Info("scanning the BIOS area")
			}

			desc, found := acpi.LocateRSDP(as, suppliedRegion)
			if !found {
				return NewExitError("no valid RSDP found", ExitCodeRSDPNotFound)
			}

			return printRSDP(cmd.OutOrStdout(), cfg.RSDP.Output, desc)
		},
	}
	root.AddCommand(c)
	c.Flags().StringSlice("image", []string{}, "Physical memory image as PATH[@BASE] (can be repeated)")
	c.Flags().Var(&region, "region", "Bootloader-supplied RSDP region as BASE:SIZE")
	c.Flags().StringP("output", "o", outputText, "Output format: text, yaml or dump")
	_ = viper.BindPFlag("rsdp.images", c.Flags().Lookup("image"))
	_ = viper.BindPFlag("rsdp.region", c.Flags().Lookup("region"))
	_ = viper.BindPFlag("rsdp.output", c.Flags().Lookup("output"))
	return c
}

// register the subcommand into rootCmd
var _ = NewRSDPCmd(rootCmd)

// parseImageSpec splits "PATH[@BASE]" into its components.
func parseImageSpec(spec string) (string, mm.PhysicalAddress, error) {
	at := strings.LastIndex(spec, "@")
	if at < 0 {
		return spec, 0, nil
	}

	base, err := strconv.ParseUint(spec[at+1:], 0, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid image base in %q", spec)
	}

	return spec[:at], mm.PhysicalAddress(base), nil
}

// loadImages reads the configured images into an emulated physical memory.
func loadImages(cfg *Config) (*vmm.PhysicalMemory, error) {
	phys := &vmm.PhysicalMemory{}

	for _, spec := range cfg.RSDP.Images {
		path, base, err := parseImageSpec(spec)
		if err != nil {
			return nil, NewFromError(err, ExitCodeBadConfig)
		}

		data, err := cfg.Fs.ReadFile(path)
		if err != nil {
			return nil, NewFromError(err, ExitCodeBadImage)
		}

		if kerr := phys.Load(base, data); kerr != nil {
			return nil, NewExitError(fmt.Sprintf("%s: %s", path, kerr.Message), ExitCodeBadImage)
		}

		cfg.Logger.Debugf("loaded %s (%s) at 0x%x", path, units.BytesSize(float64(len(data))), base)
	}

	cfg.Logger.Debugf("physical memory: %s", units.BytesSize(float64(phys.Size())))
	return phys, nil
}

// checkRegionSize rejects regions larger than the loaded physical memory.
func checkRegionSize(spec RegionSpec, phys *vmm.PhysicalMemory) error {
	if loaded := uint64(phys.Size()); spec.Size > loaded {
		return NewExitError(fmt.Sprintf("region %s is larger than the loaded memory (%s)",
			spec, units.BytesSize(float64(loaded))), ExitCodeBadConfig)
	}

	return nil
}

// mapSuppliedRegion identity-maps the pages spanned by spec, as the
// bootloader would have done before handing the region to the kernel.
func mapSuppliedRegion(as vmm.AddressSpace, spec RegionSpec) error {
	base := mm.PhysicalAddress(spec.Base)
	size := mm.Size(base.PageOffset()) + mm.Size(spec.Size)

	if _, err := vmm.IdentityMapRegion(as, mm.FrameFromAddress(base), size, vmm.FlagPresent|vmm.FlagNoExecute); err != nil {
		return NewExitError(fmt.Sprintf("unable to map region %s: %s", spec, err.Message), ExitCodeBadImage)
	}

	return nil
}

func printRSDP(w io.Writer, format string, desc table.RSDPDescriptor) error {
	switch format {
	case outputYAML:
		out, err := yaml.Marshal(newRSDPReport(desc))
		if err != nil {
			return NewFromError(err, ExitCodeGeneric)
		}
		_, err = w.Write(out)
		return NewFromError(err, ExitCodeWriteFailed)
	case outputDump:
		_, err := fmt.Fprintln(w, litter.Sdump(desc))
		return NewFromError(err, ExitCodeWriteFailed)
	}

	r := newRSDPReport(desc)
	_, err := fmt.Fprintf(w, "signature: %q\noem: %q\nrevision: %d\n%s: %s\n",
		r.Signature, r.OEMID, r.Revision, r.Table, r.SDTAddress)
	return NewFromError(err, ExitCodeWriteFailed)
}
