//go:build !unix

package installer

func probeWritable(string) error {
	return nil
}
