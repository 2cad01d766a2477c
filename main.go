/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/maxldruck/printcalc/cmd"

func main() {
	cmd.Execute()
}
