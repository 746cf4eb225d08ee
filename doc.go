// Package dtcinitium is a client for the Scanivalve DTC Initium multi-channel
// pressure-scanning data-acquisition unit.
//
// The DTC Initium is driven over a persistent TCP connection on its fixed
// service port: commands are ASCII strings terminated by ";\n" and responses
// are binary packets with a fixed 4-byte header. This package layers a typed
// client on top of that protocol:
//
//   - scanner models and validates the scanner/port addressing and expands
//     port range specifications into channel lists.
//   - command renders each device command into its exact wire form.
//   - packet decodes the device's response packets.
//   - dtcinitium (this package) ties them together: connection lifecycle,
//     setup table configuration, and blocking or background acquisition of
//     pressure samples into a reusable buffer.
//
// Connection Establishment:
//   - Build the scanner model with scanner.New or scanner.NewGroups.
//   - Create a ConnectionConfig with NewConnectionConfig and the WithXXX options.
//   - Call Connect to dial the device and run the bootstrap handshake.
//
// Acquisition:
//   - Configure a setup table with Configure.
//   - Call Acquire for a blocking run, or Start/Read for a background run
//     with SamplesRead/SampleRate progress polling in between.
//
// Usage Example:
//
//	scn, err := scanner.New("1-8")
//	// ... handle error ...
//	cfg, err := dtcinitium.NewConnectionConfig("192.168.129.7")
//	// ... handle error ...
//	dev, err := dtcinitium.Connect(ctx, cfg, scn)
//	// ... handle error ...
//	defer dev.Close()
//
//	_, err = dev.Configure(1, 64, 10, 500, 0, false, "101-104")
//	// ... handle error ...
//	press, rate, err := dev.Acquire(1, 10)
//	// ... handle error ...
//
// At most one acquisition session is live per connection; every other wire
// operation is refused with ErrAcquiring while one runs. A faulted session
// poisons the connection: the framing position can no longer be trusted and
// the connection should be reopened.
package dtcinitium
