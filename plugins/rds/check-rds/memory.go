package main

import "math"

// memoryGiB is the memory of each RDS instance class in GiB.
var memoryGiB = map[string]float64{
	"db.cr1.8xlarge":  244,
	"db.m1.small":     1.7,
	"db.m1.medium":    3.75,
	"db.m1.large":     7.5,
	"db.m1.xlarge":    15,
	"db.m2.xlarge":    17.1,
	"db.m2.2xlarge":   34.2,
	"db.m2.4xlarge":   68.4,
	"db.m3.medium":    3.75,
	"db.m3.large":     7.5,
	"db.m3.xlarge":    15,
	"db.m3.2xlarge":   30,
	"db.m4.large":     8,
	"db.m4.xlarge":    16,
	"db.m4.2xlarge":   32,
	"db.m4.4xlarge":   64,
	"db.m4.10xlarge":  160,
	"db.m4.16xlarge":  256,
	"db.m5.large":     8,
	"db.m5.xlarge":    16,
	"db.m5.2xlarge":   32,
	"db.m5.4xlarge":   64,
	"db.m5.12xlarge":  192,
	"db.m5.24xlarge":  384,
	"db.m6g.large":    8,
	"db.m6g.xlarge":   16,
	"db.m6g.2xlarge":  32,
	"db.m6g.4xlarge":  64,
	"db.r3.large":     15,
	"db.r3.xlarge":    30.5,
	"db.r3.2xlarge":   61,
	"db.r3.4xlarge":   122,
	"db.r3.8xlarge":   244,
	"db.r4.large":     15.25,
	"db.r4.xlarge":    30.5,
	"db.r4.2xlarge":   61,
	"db.r4.4xlarge":   122,
	"db.r4.8xlarge":   244,
	"db.r4.16xlarge":  488,
	"db.r5.large":     16,
	"db.r5.xlarge":    32,
	"db.r5.2xlarge":   64,
	"db.r5.4xlarge":   128,
	"db.r5.12xlarge":  384,
	"db.r5.24xlarge":  768,
	"db.t1.micro":     0.615,
	"db.t2.micro":     1,
	"db.t2.small":     2,
	"db.t2.medium":    4,
	"db.t2.large":     8,
	"db.t2.xlarge":    16,
	"db.t2.2xlarge":   32,
	"db.t3.micro":     1,
	"db.t3.small":     2,
	"db.t3.medium":    4,
	"db.t3.large":     8,
	"db.t3.xlarge":    16,
	"db.t3.2xlarge":   32,
	"db.x1.16xlarge":  976,
	"db.x1.32xlarge":  1952,
	"db.x1e.xlarge":   122,
	"db.x1e.2xlarge":  244,
	"db.x1e.4xlarge":  488,
	"db.x1e.8xlarge":  976,
	"db.x1e.16xlarge": 1952,
	"db.x1e.32xlarge": 3904,
}

const gib = 1 << 30

// memoryBytes returns the memory of instanceClass, or false for unknown classes.
func memoryBytes(instanceClass string) (float64, bool) {
	size, ok := memoryGiB[instanceClass]
	return size * gib, ok
}

// usedPercent turns a free byte count into a usage percentage of total.
func usedPercent(total, free float64) float64 {
	if total <= 0 {
		return math.NaN()
	}
	return (total - free) / total * 100
}
