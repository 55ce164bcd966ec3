package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/loepfe/mcuboot/flash/memflash"
	"github.com/loepfe/mcuboot/swap"
)

// areaProfile is one region of a geometry profile.
type areaProfile struct {
	sectors []uint32
	image   string
}

func sectorList(key string) ([]uint32, error) {
	raw := viper.Get(key)
	if raw == nil {
		return nil, fmt.Errorf("profile is missing %q", key)
	}
	var sectors []uint32
	for _, v := range cast.ToSlice(raw) {
		n, err := cast.ToUint32E(v)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("profile %q: bad sector size %v", key, v)
		}
		sectors = append(sectors, n)
	}
	if len(sectors) == 0 {
		return nil, fmt.Errorf("profile %q: empty sector list", key)
	}
	return sectors, nil
}

func loadAreaProfile(name string) (areaProfile, error) {
	sectors, err := sectorList(name + ".sectors")
	if err != nil {
		return areaProfile{}, err
	}
	return areaProfile{
		sectors: sectors,
		image:   viper.GetString(name + ".image"),
	}, nil
}

// loadImage fills dev from an image file. Intel HEX segments land at
// their record addresses; raw binaries land at offset 0.
func loadImage(dev *memflash.Device, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".hex") {
		mem := gohex.NewMemory()
		if err := mem.ParseIntelHex(f); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, seg := range mem.GetDataSegments() {
			if err := dev.Load(seg.Address, seg.Data); err != nil {
				return fmt.Errorf("load %s segment @0x%X: %w", path, seg.Address, err)
			}
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := dev.Load(0, data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// rig holds the simulated devices built from the profile.
type rig struct {
	engine    *swap.Engine
	primary   *memflash.Device
	secondary *memflash.Device
	scratch   *memflash.Device
}

// buildRig constructs the three devices and the engine from the active
// profile, loading slot images when the profile names them.
func buildRig(opts ...swap.Option) (*rig, error) {
	align := viper.GetUint32("align")
	if align == 0 {
		align = 4
	}

	var devices [3]*memflash.Device
	for i, name := range []string{"primary", "secondary", "scratch"} {
		p, err := loadAreaProfile(name)
		if err != nil {
			return nil, err
		}
		dev := memflash.New(p.sectors, memflash.WithAlign(align))
		if p.image != "" {
			if err := loadImage(dev, p.image); err != nil {
				return nil, err
			}
		}
		devices[i] = dev
	}

	opts = append(opts, swap.WithLogger(stdLogger{}))
	if maxSectors := viper.GetInt("max-sectors"); maxSectors > 0 {
		opts = append(opts, swap.WithMaxSectors(maxSectors))
	}

	eng, err := swap.New(devices[0], devices[1], devices[2], opts...)
	if err != nil {
		return nil, err
	}

	return &rig{
		engine:    eng,
		primary:   devices[0],
		secondary: devices[1],
		scratch:   devices[2],
	}, nil
}
