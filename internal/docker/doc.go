// Package docker hands resolved services to a Docker daemon.
//
// The Launcher turns a composer.ResolvedService into container and host
// configuration and asks the daemon to pull, create and start it. Restart
// supervision, log rotation and networking remain the daemon's job.
//
// # Interface Abstraction
//
// The RuntimeAPI interface abstracts the Docker SDK, enabling mock injection
// for testing. Use NewClientWithAPI for test scenarios.
//
// # Example
//
//	client, err := docker.NewClient()
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	launcher := docker.NewLauncher(client, logrus.NewEntry(logrus.StandardLogger()))
//	id, err := launcher.Launch(ctx, svc, docker.LaunchOptions{Pull: true})
package docker
