// Proteus is an SNMP table polling and MIB resolution engine.
package main

import "github.com/geekxflood/proteus/cmd"

func main() {
	cmd.Execute()
}
