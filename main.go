package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andig/bluebolt/bluebolt"
	"github.com/evcc-io/evcc/util"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bluebolt",
		Usage: "BlueBOLT cloud client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Usage:   "account email",
				EnvVars: []string{"BLUEBOLT_USER"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "account password",
				EnvVars: []string{"BLUEBOLT_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "uri",
				Usage:   "service endpoint",
				EnvVars: []string{"BLUEBOLT_URI"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "yaml configuration file",
			},
			&cli.StringFlag{
				Name:  "log",
				Value: "error",
				Usage: "log level (fatal, error, warn, info, debug, trace)",
			},
		},
		Before: func(c *cli.Context) error {
			util.LogLevel(c.String("log"), nil)
			return nil
		},
		Action: overview,
		Commands: []*cli.Command{
			{
				Name:   "locations",
				Usage:  "list locations",
				Action: locations,
			},
			{
				Name:      "location",
				Usage:     "show location details",
				ArgsUsage: "<site>",
				Action:    locationDetails,
			},
			{
				Name:      "devices",
				Usage:     "list devices of a location",
				ArgsUsage: "<site>",
				Action:    devices,
			},
			{
				Name:      "device",
				Usage:     "show device status",
				ArgsUsage: "<site> <class> <device>",
				Action:    device,
			},
			{
				Name:      "outlets",
				Usage:     "show outlet labels",
				ArgsUsage: "<site> <class> <device>",
				Action:    outlets,
			},
			{
				Name:      "on",
				Usage:     "turn outlet on",
				ArgsUsage: "<device>",
				Action:    switchOutlet(true),
			},
			{
				Name:      "off",
				Usage:     "turn outlet off",
				ArgsUsage: "<device>",
				Action:    switchOutlet(false),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connect(c *cli.Context) (*bluebolt.Connection, error) {
	other, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	overrides(other, map[string]string{
		"user":     c.String("user"),
		"password": c.String("password"),
		"uri":      c.String("uri"),
	})

	return bluebolt.NewFromConfig(c.Context, other)
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.FullName(), c.Command.ArgsUsage), 1)
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}

func overview(c *cli.Context) error {
	conn, err := connect(c)
	if err != nil {
		return err
	}

	fmt.Printf("Connected? %v\n", conn.Connected())

	token, err := conn.TokenSource().Token()
	if err != nil {
		return err
	}
	fmt.Printf("Session expires: %s\n", token.Expiry.Format(time.RFC3339))

	fmt.Println("\n--Locations--")
	locations, err := conn.Locations(c.Context)
	if err != nil {
		return err
	}
	printJSON(locations)

	for _, location := range locations.Records {
		site := location.SiteID

		fmt.Printf("\n--Location %s--\n", site)
		details, err := conn.LocationDetails(c.Context, site)
		if err != nil {
			return err
		}
		printJSON(details)

		fmt.Printf("\n--Devices in Location %s--\n", site)
		devices, err := conn.Devices(c.Context, site)
		if err != nil {
			return err
		}
		printJSON(devices)

		for _, d := range devices.DevList {
			fmt.Printf("\nOutlet status for device %s / %s\n", d.DevClass, d.DevID)

			status, err := conn.Device(c.Context, site, d.DevClass, d.DevID)
			if err != nil {
				return err
			}
			printJSON(status)

			labels, err := conn.Outlets(c.Context, site, d.DevClass, d.DevID)
			if err != nil {
				return err
			}
			printJSON(labels)
		}
	}

	return nil
}

func locations(c *cli.Context) error {
	conn, err := connect(c)
	if err != nil {
		return err
	}

	res, err := conn.Locations(c.Context)
	if err == nil {
		printJSON(res)
	}
	return err
}

func locationDetails(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	conn, err := connect(c)
	if err != nil {
		return err
	}

	res, err := conn.LocationDetails(c.Context, bluebolt.ID(c.Args().Get(0)))
	if err == nil {
		printJSON(res)
	}
	return err
}

func devices(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	conn, err := connect(c)
	if err != nil {
		return err
	}

	res, err := conn.Devices(c.Context, bluebolt.ID(c.Args().Get(0)))
	if err == nil {
		printJSON(res)
	}
	return err
}

func device(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}

	conn, err := connect(c)
	if err != nil {
		return err
	}

	args := c.Args()
	res, err := conn.Device(c.Context, bluebolt.ID(args.Get(0)), args.Get(1), bluebolt.ID(args.Get(2)))
	if err == nil {
		printJSON(res)
	}
	return err
}

func outlets(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}

	conn, err := connect(c)
	if err != nil {
		return err
	}

	args := c.Args()
	res, err := conn.Outlets(c.Context, bluebolt.ID(args.Get(0)), args.Get(1), bluebolt.ID(args.Get(2)))
	if err == nil {
		printJSON(res)
	}
	return err
}

func switchOutlet(enable bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := requireArgs(c, 1); err != nil {
			return err
		}

		conn, err := connect(c)
		if err != nil {
			return err
		}

		sh := bluebolt.NewSwitch(conn, bluebolt.ID(c.Args().Get(0)))
		if err := sh.Enable(c.Context, enable); err != nil {
			return err
		}

		fmt.Printf("Outlet %s: %v\n", c.Args().Get(0), sh.Enabled())
		return nil
	}
}
