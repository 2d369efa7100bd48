package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	domainVerification "github.com/truthlens/truthlens/domains/verification"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [claim]",
	Short: "Fact-check a single claim from the command line",
	Args:  cobra.MinimumNArgs(1),
	Run:   runVerify,
}

func init() {
	verifyCmd.Flags().String("context", "", "extra context for the claim")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) {
	claim := strings.Join(args, " ")
	userContext, _ := cmd.Flags().GetString("context")

	verdict, err := verificationUsecase.Verify(context.Background(), domainVerification.VerifyRequest{
		Claim:   claim,
		Context: userContext,
	})
	if err != nil {
		logrus.Fatalf("[VERIFY] %v", err)
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		logrus.Fatalf("[VERIFY] Failed to render verdict: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}
