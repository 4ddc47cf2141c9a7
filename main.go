package main

import "zabbix-sync/cmd"

func main() {
	cmd.Execute()
}
