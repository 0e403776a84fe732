// Package harness runs booking scenarios against a live site and reports
// whether each state transition behaved.
//
// # Suite Format
//
// Suites are YAML files with the following structure:
//
//	name: booking-state-machine
//	description: "What this suite validates"
//	partition:
//	  base_offset: 500
//	  width: 20
//	  stay_length: 2
//	  agents: [chromium, firefox]
//	  rooms: [1, 2]
//	scenarios:
//	  - name: api-conflict
//	    description: "Overlapping booking is refused"
//	    driver: api
//	    transition: conflict
//	    guest: { first_name: PKQA, last_name: QATest }
//	    second_guest: { first_name: Charlie, last_name: Parker }
//
// # Transitions
//
//   - reserve: Available to Reserved. 201, and the booking is confirmed.
//   - reject: Available to Rejected. A name outside 3..18 characters gets 400
//     with "size must be between 3 and 18" and no booking.
//   - conflict: Reserved to Conflict. A second guest for the same range gets 409.
//   - round_trip: Reserved to Deleted. Read back, delete, then read gets 404.
//
// Each transition is written once against driver.Driver and runs unchanged
// through the API or a browser.
//
// # Isolation
//
// Every scenario × agent unit books the room and dates partition.Plan assigns
// it, so units never contend for the same calendar slot and can run in
// parallel. Each attempt runs inside teardown.Scope: bookings are registered
// as soon as the backend acknowledges them and deleted when the attempt ends.
//
// # Failure Kinds
//
// A create that does not get 201 is a collision, reported apart from
// assertion failures. Timeouts and transport errors have their own kinds.
// See Classify.
//
// # Usage
//
//	runner := harness.NewRunner(harness.Config{
//	    Client:      booking.NewClient(baseURL),
//	    Credentials: creds,
//	})
//	report, err := runner.Run(ctx, harness.DefaultSuite(), nil)
package harness
