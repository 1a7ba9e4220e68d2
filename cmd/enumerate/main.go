// Command enumerate opens the physical compute device at a given index
// and prints what DeviceBuilder negotiated, the Go successor to the
// teacher's cmd/test instance/device enumeration smoke test.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/christerso/gpurt/pkg/device"
)

func main() {
	index := flag.Int("index", 0, "physical device index to open")
	flag.Parse()

	fmt.Println("gpurt: enumerating compute devices")

	dev, err := device.NewBuilder().Index(*index).Build()
	if err != nil {
		log.Fatalf("gpurt: failed to open device %d: %v", *index, err)
	}
	defer dev.Close()

	info := dev.Info()
	fmt.Printf("opened %s\n", dev)
	fmt.Printf("  compute queues:  %d\n", info.ComputeQueueCount)
	fmt.Printf("  transfer queues: %d\n", info.TransferQueueCount)
	fmt.Printf("  int8=%v int16=%v int64=%v float16=%v float64=%v\n",
		info.Features.Int8(), info.Features.Int16(), info.Features.Int64(), info.Features.Float16(), info.Features.Float64())

	if err := dev.Wait(); err != nil {
		log.Fatalf("gpurt: wait failed: %v", err)
	}
	fmt.Println("device is idle, closing")
}
