package main

import "fmt"

func main() {
	total := 0
	for i := 1; i <= 3; i++ {
		total = add(total, i)
	}
	fmt.Println("total:", total)
}

func add(a, b int) int {
	return a + b
}
