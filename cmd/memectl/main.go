package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	pb "meme-market/src/grpc_control"
)

const usage = `usage: memectl [-addr host:port] <command> [args]

commands:
  status                   market summary
  stocks                   all stocks by price
  stock <name>             one stock
  history <name>           price history of a stock
  stats <name>             price statistics of a stock
  recent [n]               latest n transactions (default: whole feed)
  user <id|name>           holdings of a user
  publishers               trade publishers
  remove-publisher <name>  detach a trade publisher
`

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "control server address")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := run(ctx, pb.NewClient(conn), flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(reply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting reply: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, client *pb.Client, args []string) (*structpb.Struct, error) {
	cmd, rest := args[0], args[1:]

	arg := func() (string, error) {
		if len(rest) != 1 {
			return "", fmt.Errorf("%s takes exactly one argument", cmd)
		}
		return rest[0], nil
	}

	switch cmd {
	case "status":
		return client.GetStatus(ctx)
	case "stocks":
		return client.ListStocks(ctx)
	case "stock":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return client.GetStock(ctx, name)
	case "history":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return client.GetHistory(ctx, name)
	case "stats":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return client.GetStockStats(ctx, name)
	case "recent":
		var n int64
		if len(rest) > 0 {
			var err error
			if n, err = strconv.ParseInt(rest[0], 10, 32); err != nil {
				return nil, fmt.Errorf("invalid count %q", rest[0])
			}
		}
		return client.RecentTransactions(ctx, int32(n))
	case "user":
		key, err := arg()
		if err != nil {
			return nil, err
		}
		return client.GetUser(ctx, key)
	case "publishers":
		return client.ListPublishers(ctx)
	case "remove-publisher":
		name, err := arg()
		if err != nil {
			return nil, err
		}
		return client.RemovePublisher(ctx, name)
	default:
		return nil, fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}
