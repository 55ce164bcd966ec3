// Command mcuswap is a host-side rig for the scratch swap engine: it
// builds simulated flash devices from a geometry profile, loads slot
// images from raw binaries or Intel HEX files, and runs, resumes or
// inspects swaps.
package main

func main() {
	Execute()
}
