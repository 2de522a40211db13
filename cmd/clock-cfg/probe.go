package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/espclock/espclock/internal/deviceconfig"
)

var (
	probeNames []string
	probePort  int
)

func init() {
	dnsProbeCmd.Flags().StringSliceVar(&probeNames, "name", []string{"connectivitycheck.gstatic.com", "captive.apple.com"}, "Names to query")
	dnsProbeCmd.Flags().IntVar(&probePort, "dns-port", 53, "DNS port of the clock")

	rootCmd.AddCommand(dnsProbeCmd)
}

var dnsProbeCmd = &cobra.Command{
	Use:   "dns-probe",
	Short: "Check that a clock in setup mode answers DNS",
	Long: `Send A queries to the clock's DNS responder and show the answers.

In setup mode every name should resolve to the access point address, which
is what makes phones and laptops open the captive portal.`,
	Example: `  clock-cfg dns-probe
  clock-cfg dns-probe --name example.com --clock 127.0.0.1 --dns-port 5353`,
	Args: cobra.NoArgs,
	RunE: runDNSProbe,
}

// probeResult is the outcome of one query.
type probeResult struct {
	Name   string
	Answer net.IP
	TTL    uint32
	RTT    time.Duration
}

func runDNSProbe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	host := deviceconfig.DefaultSetupHost
	if clockTarget != "" {
		host = setupTarget().Host
	}
	server := net.JoinHostPort(host, strconv.Itoa(probePort))
	client := &dns.Client{Net: "udp", Timeout: timeout}

	failed := 0
	for _, name := range probeNames {
		res, err := probe(client, server, name)
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %-35s %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "✓ %-35s %s (ttl %ds, %s)\n", name, res.Answer, res.TTL, res.RTT.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries to %s failed", failed, len(probeNames), server)
	}
	return nil
}

func probe(client *dns.Client, server, name string) (*probeResult, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)

	reply, rtt, err := client.Exchange(m, server)
	if err != nil {
		return nil, err
	}
	if reply.Id != m.Id {
		return nil, fmt.Errorf("reply id %d does not match query id %d", reply.Id, m.Id)
	}
	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			return &probeResult{Name: name, Answer: a.A, TTL: a.Hdr.Ttl, RTT: rtt}, nil
		}
	}
	return nil, fmt.Errorf("no A record in reply (rcode %s)", dns.RcodeToString[reply.Rcode])
}
