// Command sfs manages sfs disk images: format, debug dump, and flat inode
// file operations.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/keks/sfs"
	"github.com/keks/sfs/disk"
)

func main() {
	app := &cli.App{
		Name:  "sfs",
		Usage: "manage sfs disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "write a fresh filesystem onto an image",
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "blocks",
						Usage: "number of 4096-byte blocks",
						Value: 32,
					},
				},
				Action: formatAction,
			},
			{
				Name:      "dump",
				Usage:     "print superblock and inode report",
				ArgsUsage: "IMAGE",
				Action:    dumpAction,
			},
			{
				Name:      "create",
				Usage:     "allocate a new inode and print its number",
				ArgsUsage: "IMAGE",
				Action:    createAction,
			},
			{
				Name:      "remove",
				Usage:     "remove an inode and free its blocks",
				ArgsUsage: "IMAGE INODE",
				Action:    removeAction,
			},
			{
				Name:      "stat",
				Usage:     "print an inode's size in bytes",
				ArgsUsage: "IMAGE INODE",
				Action:    statAction,
			},
			{
				Name:      "copyin",
				Usage:     "copy a host file into an inode",
				ArgsUsage: "IMAGE INODE FILE",
				Action:    copyinAction,
			},
			{
				Name:      "copyout",
				Usage:     "copy an inode's contents into a host file",
				ArgsUsage: "IMAGE INODE FILE",
				Action:    copyoutAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func formatAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sfs format [--blocks N] IMAGE", 2)
	}

	d, err := disk.Open(c.Args().Get(0), uint32(c.Uint("blocks")))
	if err != nil {
		return err
	}
	defer d.Close()

	var fs sfs.FileSystem
	return fs.Format(d)
}

func dumpAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sfs dump IMAGE", 2)
	}

	d, err := disk.OpenImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()

	return sfs.Dump(d, os.Stdout)
}

func createAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sfs create IMAGE", 2)
	}

	fs, d, err := mount(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()
	defer fs.Unmount()

	ino, err := fs.Create()
	if err != nil {
		return err
	}

	fmt.Println(ino)
	return nil
}

func removeAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: sfs remove IMAGE INODE", 2)
	}

	fs, d, err := mount(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()
	defer fs.Unmount()

	ino, err := parseInode(c.Args().Get(1))
	if err != nil {
		return err
	}

	return fs.Remove(ino)
}

func statAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: sfs stat IMAGE INODE", 2)
	}

	fs, d, err := mount(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()
	defer fs.Unmount()

	ino, err := parseInode(c.Args().Get(1))
	if err != nil {
		return err
	}

	size, err := fs.Stat(ino)
	if err != nil {
		return err
	}

	fmt.Println(size)
	return nil
}

func copyinAction(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: sfs copyin IMAGE INODE FILE", 2)
	}

	fs, d, err := mount(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()
	defer fs.Unmount()

	ino, err := parseInode(c.Args().Get(1))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.Args().Get(2))
	if err != nil {
		return err
	}

	n, err := fs.Write(ino, data, 0)
	if err != nil {
		return err
	}

	fmt.Printf("%d bytes copied\n", n)
	return nil
}

func copyoutAction(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: sfs copyout IMAGE INODE FILE", 2)
	}

	fs, d, err := mount(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer d.Close()
	defer fs.Unmount()

	ino, err := parseInode(c.Args().Get(1))
	if err != nil {
		return err
	}

	size, err := fs.Stat(ino)
	if err != nil {
		return err
	}

	data := make([]byte, size)
	if size > 0 {
		if _, err := fs.Read(ino, data, 0); err != nil {
			return err
		}
	}

	if err := os.WriteFile(c.Args().Get(2), data, 0666); err != nil {
		return err
	}

	fmt.Printf("%d bytes copied\n", len(data))
	return nil
}

func mount(path string) (*sfs.FileSystem, *disk.Disk, error) {
	d, err := disk.OpenImage(path)
	if err != nil {
		return nil, nil, err
	}

	var fs sfs.FileSystem
	if err := fs.Mount(d); err != nil {
		d.Close()
		return nil, nil, err
	}

	return &fs, d, nil
}

func parseInode(s string) (sfs.InodeID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing inode number %q: %w", s, err)
	}
	return sfs.InodeID(n), nil
}
