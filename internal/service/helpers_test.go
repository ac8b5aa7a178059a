package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testCatalog() *catalog.Catalog {
	return catalog.Default()
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

const vcfHeader = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE\n"

func vcfLine(chrom string, pos int, rsid, ref, alt string, qual float64, gt string) string {
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s\t%g\tPASS\t.\tGT\t%s\n",
		chrom, pos, rsid, ref, alt, qual, gt)
}

func vcfDocument(lines ...string) string {
	return vcfHeader + strings.Join(lines, "")
}

// Common fixtures used across stage tests.
var (
	// CYP2D6 *4 homozygous poor metabolizer.
	vcfCYP2D6PM = vcfDocument(
		vcfLine("chr22", 42524947, "rs3892097", "C", "T", 99, "1/1"),
	)

	// Homozygous reference calls only; wild type everywhere.
	vcfWildType = vcfDocument(
		vcfLine("chr22", 42524947, "rs3892097", "C", "C", 99, "0/0"),
		vcfLine("chr10", 94781859, "rs4244285", "G", "G", 85, "0/0"),
	)
)
