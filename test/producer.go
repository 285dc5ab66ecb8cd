package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

// Writes a synthetic access log in the key=value layout the analyzer reads.
// Roughly one line in fifty carries no tokens so dropped-line handling gets
// exercised too.
func main() {
	count := flag.Int("n", 1000, "number of lines")
	out := flag.String("o", "", "output file (default stdout)")
	slow := flag.Float64("slow", 0, "extra seconds added to every response time")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}

	rng := rand.New(rand.NewSource(*seed))
	methods := []string{"GET", "POST", "PUT", "DELETE"}
	paths := []string{"/api/users", "/api/orders", "/api/products", "/health"}
	statuses := []int{200, 200, 200, 201, 204, 400, 404, 500, 502, 504}
	upstreams := []string{"10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080"}

	bw := bufio.NewWriter(w)
	start := time.Now().Add(-time.Duration(*count) * time.Second)

	for i := 0; i < *count; i++ {
		ts := start.Add(time.Duration(i) * time.Second).Format(time.RFC3339)
		if rng.Intn(50) == 0 {
			fmt.Fprintf(bw, "%s healthcheck ok\n", ts)
			continue
		}

		rt := rng.ExpFloat64()*0.08 + 0.005 + *slow
		status := statuses[rng.Intn(len(statuses))]
		upstream, urt := upstreams[rng.Intn(len(upstreams))], fmt.Sprintf("%.3f", rt*0.9)
		if status == 502 || status == 504 {
			upstream, urt = "-", "-"
		}

		fmt.Fprintf(bw, "%s method=%s path=%s status=%d bytes=%d rt=%.3f upstream=%s urt=%s\n",
			ts,
			methods[rng.Intn(len(methods))],
			paths[rng.Intn(len(paths))],
			status,
			rng.Intn(4096),
			rt,
			upstream,
			urt)
	}

	if err := bw.Flush(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d lines", *count)
}
