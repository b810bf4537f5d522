package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manifold/internal/manifold"
	"manifold/internal/review"
)

var (
	reviewRequester string
	reviewReviewer  string
	reviewComment   string
	reviewStatus    string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Request and settle spec reviews",
}

var reviewRequestCmd = &cobra.Command{
	Use:   "request <spec_id>",
	Short: "Open a review request against a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := eng.ReviewRequest(args[0], reviewRequester, reviewReviewer)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <review_id>",
	Short: "Approve a pending review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.ReviewApprove(args[0], reviewComment)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <review_id>",
	Short: "Reject a pending review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.ReviewReject(args[0], reviewComment)
	},
}

var reviewCancelCmd = &cobra.Command{
	Use:   "cancel <review_id>",
	Short: "Cancel a pending review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.ReviewCancel(args[0], reviewComment)
	},
}

var reviewListCmd = &cobra.Command{
	Use:   "list <spec_id>",
	Short: "List reviews for a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviews, err := eng.ReviewList(review.Filter{
			SpecID: args[0],
			Status: manifold.ReviewStatus(reviewStatus),
		})
		if err != nil {
			return err
		}
		return printJSON(reviews)
	},
}

func init() {
	reviewRequestCmd.Flags().StringVar(&reviewRequester, "requester", "cli", "who is requesting review")
	reviewRequestCmd.Flags().StringVar(&reviewReviewer, "reviewer", "", "who should review")

	reviewApproveCmd.Flags().StringVar(&reviewComment, "comment", "", "review comment")
	reviewRejectCmd.Flags().StringVar(&reviewComment, "comment", "", "reason for rejection (required)")
	reviewCancelCmd.Flags().StringVar(&reviewComment, "comment", "", "cancellation note")

	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "filter by status")

	reviewCmd.AddCommand(reviewRequestCmd, reviewApproveCmd, reviewRejectCmd, reviewCancelCmd, reviewListCmd)
}
