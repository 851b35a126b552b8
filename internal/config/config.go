package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config interface {
	Init(cmd *cobra.Command) error
	Set()
}

type Server struct {
	Cert  string
	Key   string
	Bind  string
	Proxy bool
	PProf bool
}

func (Server) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("bind", "127.0.0.1:3000", "address/port/socket to serve http")
	if err := viper.BindPFlag("bind", cmd.PersistentFlags().Lookup("bind")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("cert", "", "path to the SSL cert used to secure the server")
	if err := viper.BindPFlag("cert", cmd.PersistentFlags().Lookup("cert")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("key", "", "path to the SSL key used to secure the server")
	if err := viper.BindPFlag("key", cmd.PersistentFlags().Lookup("key")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("proxy", false, "allow reverse proxies")
	if err := viper.BindPFlag("proxy", cmd.PersistentFlags().Lookup("proxy")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("pprof", false, "enable pprof endpoint available at /debug/pprof")
	if err := viper.BindPFlag("pprof", cmd.PersistentFlags().Lookup("pprof")); err != nil {
		return err
	}

	return nil
}

func (s *Server) Set() {
	s.Cert = viper.GetString("cert")
	s.Key = viper.GetString("key")
	s.Bind = viper.GetString("bind")
	s.Proxy = viper.GetBool("proxy")
	s.PProf = viper.GetBool("pprof")
}

type Bot struct {
	Token string
}

func (Bot) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("bot.token", "", "telegram bot api token (required)")
	return viper.BindPFlag("bot.token", cmd.PersistentFlags().Lookup("bot.token"))
}

func (b *Bot) Set() {
	b.Token = viper.GetString("bot.token")
}

type Credentials struct {
	// inline JSON bundle takes priority over the remote url
	Inline string
	URL    string
}

func (Credentials) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("cookies.json", "", "inline JSON array of session cookies")
	if err := viper.BindPFlag("cookies.json", cmd.PersistentFlags().Lookup("cookies.json")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("cookies.url", "", "url to fetch the session cookies from")
	return viper.BindPFlag("cookies.url", cmd.PersistentFlags().Lookup("cookies.url"))
}

func (c *Credentials) Set() {
	c.Inline = viper.GetString("cookies.json")
	c.URL = viper.GetString("cookies.url")
}

type Pipeline struct {
	Quality   string
	Container string
}

func (Pipeline) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("quality", "360p", "target quality label for chat downloads")
	if err := viper.BindPFlag("quality", cmd.PersistentFlags().Lookup("quality")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("container", "mp4", "preferred container for chat downloads")
	return viper.BindPFlag("container", cmd.PersistentFlags().Lookup("container"))
}

func (p *Pipeline) Set() {
	p.Quality = viper.GetString("quality")
	p.Container = viper.GetString("container")
}
