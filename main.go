package main

import "github.com/emccode/ecs-cf-service-broker/cmd"

func main() {
	cmd.Execute()
}
