// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/uefitools/fwrecords/cper"
)

type options struct {
	JSON    bool `short:"j" long:"json" description:"Dump the record as JSON"`
	Hexdump bool `long:"hexdump" description:"Display hexdump of each section body"`

	Positional struct {
		RecordPath string `positional-arg-name:"record-path" required:"true"`
	} `positional-args:"true"`
}

var opts options

type jsonSection struct {
	Type      string   `json:"type"`
	TypeLabel string   `json:"typeLabel"`
	Severity  string   `json:"severity"`
	Flags     []string `json:"flags,omitempty"`
	FRUID     string   `json:"fruId,omitempty"`
	FRUText   string   `json:"fruText,omitempty"`
	Details   string   `json:"details"`
	Body      string   `json:"body"`
}

type jsonRecord struct {
	Revision     string        `json:"revision"`
	Severity     string        `json:"severity"`
	RecordID     string        `json:"recordId"`
	CreatorID    string        `json:"creatorId"`
	Notification string        `json:"notificationType"`
	PlatformID   string        `json:"platformId,omitempty"`
	PartitionID  string        `json:"partitionId,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Precise      bool          `json:"preciseTimestamp,omitempty"`
	Sections     []jsonSection `json:"sections"`
}

func dumpJSON(record *cper.Record) error {
	out := jsonRecord{
		Revision:     fmt.Sprintf("0x%04x", record.Header.Revision),
		Severity:     record.Header.Severity.String(),
		RecordID:     fmt.Sprintf("0x%016x", record.Header.RecordID),
		CreatorID:    record.Header.CreatorID.String(),
		Notification: record.Header.NotificationType.String()}
	if platform, ok := record.Header.PlatformID(); ok {
		out.PlatformID = platform.String()
	}
	if partition, ok := record.Header.PartitionID(); ok {
		out.PartitionID = partition.String()
	}
	if timestamp, ok := record.Header.Timestamp(); ok {
		out.Timestamp = timestamp.Format(time.RFC3339)
		out.Precise = record.Header.PreciseTimestamp()
	}

	for _, section := range record.Sections {
		s := jsonSection{
			Type:      section.Descriptor.SectionType.String(),
			TypeLabel: section.Descriptor.TypeLabel(),
			Severity:  section.Descriptor.Severity.String(),
			Flags:     section.Descriptor.Flags.Decode(),
			Details:   section.Data.String(),
			Body:      hex.EncodeToString(section.Data.Bytes())}
		if id, ok := section.Descriptor.FRUID(); ok {
			s.FRUID = id.String()
		}
		if text, ok := section.Descriptor.FRUText(); ok {
			s.FRUText = text
		}
		out.Sections = append(out.Sections, s)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}

func dumpText(record *cper.Record) {
	fmt.Printf("Revision:          0x%04x\n", record.Header.Revision)
	fmt.Printf("Severity:          %v\n", record.Header.Severity)
	fmt.Printf("Record ID:         0x%016x\n", record.Header.RecordID)
	fmt.Printf("Creator ID:        %v\n", record.Header.CreatorID)
	fmt.Printf("Notification type: %v\n", record.Header.NotificationType)
	if platform, ok := record.Header.PlatformID(); ok {
		fmt.Printf("Platform ID:       %v\n", platform)
	}
	if partition, ok := record.Header.PartitionID(); ok {
		fmt.Printf("Partition ID:      %v\n", partition)
	}
	if timestamp, ok := record.Header.Timestamp(); ok {
		precise := ""
		if record.Header.PreciseTimestamp() {
			precise = " (precise)"
		}
		fmt.Printf("Timestamp:         %v%s\n", timestamp.Format(time.RFC3339), precise)
	}
	if record.Header.Flags != 0 {
		fmt.Printf("Flags:             %v\n", record.Header.Flags)
	}

	for i, section := range record.Sections {
		fmt.Printf("\nSection %d: %s\n", i, section.Descriptor.TypeLabel())
		fmt.Printf("  Type:     %v\n", section.Descriptor.SectionType)
		fmt.Printf("  Severity: %v\n", section.Descriptor.Severity)
		if flags := section.Descriptor.Flags.Decode(); len(flags) > 0 {
			fmt.Printf("  Flags:    %s\n", strings.Join(flags, ", "))
		}
		if id, ok := section.Descriptor.FRUID(); ok {
			fmt.Printf("  FRU ID:   %v\n", id)
		}
		if text, ok := section.Descriptor.FRUText(); ok {
			fmt.Printf("  FRU text: %s\n", text)
		}
		fmt.Printf("  %s\n", section.Data.String())
		if opts.Hexdump {
			fmt.Printf("  Body:\n\t%s\n", strings.Replace(hex.Dump(section.Data.Bytes()), "\n", "\n\t", -1))
		}
	}
}

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	data, err := os.ReadFile(opts.Positional.RecordPath)
	if err != nil {
		return err
	}

	record, err := cper.ReadRecord(data)
	if err != nil {
		return fmt.Errorf("cannot read record: %v", err)
	}

	if opts.JSON {
		return dumpJSON(record)
	}
	dumpText(record)
	return nil
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			// flags already prints this
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
