package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loepfe/mcuboot/trailer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Decode the trailers and classify the boot status",
	RunE:  showStatus,
}

func printSwapState(name string, st trailer.SwapState) {
	fmt.Printf("%-10s magic=%s swap_type=%s image_num=%d copy_done=%s image_ok=%s\n",
		name, st.Magic, st.SwapType, st.ImageNum, st.CopyDone, st.ImageOk)
}

func showStatus(cmd *cobra.Command, args []string) error {
	r, err := buildRig()
	if err != nil {
		return err
	}

	for _, reg := range []struct {
		name   string
		region trailer.Region
	}{
		{"primary", r.engine.PrimaryRegion()},
		{"secondary", r.engine.SecondaryRegion()},
		{"scratch", r.engine.ScratchRegion()},
	} {
		st, err := reg.region.ReadSwapState()
		if err != nil {
			return err
		}
		printSwapState(reg.name, st)
	}

	bs, err := r.engine.ResumeStatus()
	if err != nil {
		return err
	}

	fmt.Printf("status source: %s\n", bs.Source)
	if bs.IsReset() {
		fmt.Println("no swap in progress")
	} else {
		fmt.Printf("swap in progress: granule %d, phase %d, swap_size=0x%X\n",
			bs.Idx, bs.State, bs.SwapSize)
	}

	for slot, name := range []string{"primary", "secondary"} {
		hdr, err := r.engine.ReadImageHeader(slot, bs)
		if err != nil {
			fmt.Printf("%s header: unreadable: %v\n", name, err)
			continue
		}
		if hdr.Valid() {
			fmt.Printf("%s header: version %s, image size 0x%X\n", name, hdr.Vers, hdr.ImgSize)
		} else {
			fmt.Printf("%s header: no image magic\n", name)
		}
	}

	return nil
}
