package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// CloudWatchLogsWriter ships each written log line to a CloudWatch Logs
// stream. It implements io.Writer so the zap logger can tee into it.
type CloudWatchLogsWriter struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string

	mu            sync.Mutex
	sequenceToken *string
}

// NewCloudWatchLogsWriter makes sure the log group exists and opens a fresh
// stream named after the service and start time.
func NewCloudWatchLogsWriter(ctx context.Context, cfg sdkaws.Config, logGroupName, serviceName string) (*CloudWatchLogsWriter, error) {
	if logGroupName == "" {
		logGroupName = "/ecommerce/services"
	}
	w := &CloudWatchLogsWriter{
		client:        cloudwatchlogs.NewFromConfig(cfg),
		logGroupName:  logGroupName,
		logStreamName: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
	}

	if err := w.ensureLogGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	_, err := w.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(w.logGroupName),
		LogStreamName: sdkaws.String(w.logStreamName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return w, nil
}

func (w *CloudWatchLogsWriter) ensureLogGroup(ctx context.Context) error {
	_, err := w.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: sdkaws.String(w.logGroupName),
	})
	if err != nil {
		var existsErr *types.ResourceAlreadyExistsException
		if !errors.As(err, &existsErr) {
			return err
		}
	}

	_, err = w.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(w.logGroupName),
		RetentionInDays: sdkaws.Int32(30),
	})
	if err != nil {
		return fmt.Errorf("failed to set retention policy: %w", err)
	}
	return nil
}

// Write never fails; shipping errors go to stderr so logging keeps working
// when CloudWatch is unreachable.
func (w *CloudWatchLogsWriter) Write(p []byte) (int, error) {
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	out, err := w.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(w.logGroupName),
		LogStreamName: sdkaws.String(w.logStreamName),
		LogEvents:     []types.InputLogEvent{event},
		SequenceToken: w.sequenceToken,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
		return len(p), nil
	}
	w.sequenceToken = out.NextSequenceToken
	return len(p), nil
}
