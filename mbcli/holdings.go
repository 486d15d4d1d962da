package main

import (
	"fmt"
	"time"
)

type HoldingGetCommands struct {
	Units   []string `short:"u" long:"unit" description:"Unit(s) to contact" required:"true" env:"MBCLI_UNIT" env-delim:","`
	Timeout int      `short:"t" long:"timeout" default:"5" description:"Timeout (in seconds)"`
	Args    struct {
		Addresses []string `required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (c *HoldingGetCommands) Execute(args []string) error {
	timeout := time.Second * time.Duration(c.Timeout)
	addresses, err := addressRanges(c.Args.Addresses)
	if err != nil {
		return err
	}
	if err := initializeConnections(c.Units, timeout); err != nil {
		return err
	}
	defer closeConnections()

	for _, sys := range c.Units {
		conn, _ := client(sys, timeout)
		for _, rng := range addresses {
			got, err := conn.client.ReadHoldingRegisters(uint16(rng.address), uint16(rng.count))
			if err != nil {
				fmt.Printf("Get Holding Registers %v: Failed: %v\n", rng.address, err)
			} else {
				fmt.Printf("Get Holding Registers %v: %v\n", rng.address, registerValues(got))
			}
		}
	}
	return nil
}

type HoldingSetCommands struct {
	Units   []string `short:"u" long:"unit" description:"Unit(s) to contact" required:"true" env:"MBCLI_UNIT" env-delim:","`
	Timeout int      `short:"t" long:"timeout" default:"5" description:"Timeout (in seconds)"`
	Args    struct {
		AddressValues []string `required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (c *HoldingSetCommands) Execute(args []string) error {
	timeout := time.Second * time.Duration(c.Timeout)
	addresses, err := addressValues(c.Args.AddressValues)
	if err != nil {
		return err
	}
	if err := initializeConnections(c.Units, timeout); err != nil {
		return err
	}
	defer closeConnections()

	for _, sys := range c.Units {
		conn, _ := client(sys, timeout)
		for _, rng := range addresses {
			if len(rng.values) == 1 {
				_, err = conn.client.WriteSingleRegister(uint16(rng.address), rng.values[0])
			} else {
				_, err = conn.client.WriteMultipleRegisters(uint16(rng.address), uint16(len(rng.values)), registerBytes(rng.values))
			}
			if err != nil {
				fmt.Printf("Write Holdings: Failed: %v\n", err)
				continue
			}
			got, err := conn.client.ReadHoldingRegisters(uint16(rng.address), uint16(len(rng.values)))
			if err != nil {
				fmt.Printf("Write Holdings verify: Failed: %v\n", err)
			} else {
				fmt.Printf("Write Holdings verify: %v\n", registerValues(got))
			}
		}
	}
	return nil
}

type HoldingMaskCommands struct {
	Units   []string `short:"u" long:"unit" description:"Unit(s) to contact" required:"true" env:"MBCLI_UNIT" env-delim:","`
	Timeout int      `short:"t" long:"timeout" default:"5" description:"Timeout (in seconds)"`
	Args    struct {
		Address int    `positional-arg-name:"ADDRESS"`
		And     uint16 `positional-arg-name:"AND"`
		Or      uint16 `positional-arg-name:"OR"`
	} `positional-args:"yes" required:"yes"`
}

func (c *HoldingMaskCommands) Execute(args []string) error {
	timeout := time.Second * time.Duration(c.Timeout)
	if c.Args.Address < 0 || c.Args.Address > 65535 {
		return fmt.Errorf("illegal address %v", c.Args.Address)
	}
	if err := initializeConnections(c.Units, timeout); err != nil {
		return err
	}
	defer closeConnections()

	for _, sys := range c.Units {
		conn, _ := client(sys, timeout)
		address := uint16(c.Args.Address)
		if _, err := conn.client.MaskWriteRegister(address, c.Args.And, c.Args.Or); err != nil {
			fmt.Printf("Mask Write Holding: Failed: %v\n", err)
			continue
		}
		got, err := conn.client.ReadHoldingRegisters(address, 1)
		if err != nil {
			fmt.Printf("Mask Write Holding verify: Failed: %v\n", err)
		} else {
			fmt.Printf("Mask Write Holding verify: %v\n", registerValues(got))
		}
	}
	return nil
}

type HoldingCommands struct {
	Get  HoldingGetCommands  `command:"get" alias:"read" description:"Get or read Holding values"`
	Set  HoldingSetCommands  `command:"set" alias:"write" description:"Set or write Holding values"`
	Mask HoldingMaskCommands `command:"mask" description:"Mask write a Holding value: (current AND and) OR (or AND NOT and)"`
}
